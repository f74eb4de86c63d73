// Package audit implements the ad performance audit service.
//
// An audit takes one uploaded CSV or Excel export, normalizes it into a
// dataset, runs the segmentation engine over it and persists a summary
// together with the full run result. Identical uploads analysed under the
// same engine settings are served from the result cache.
//
// The service layer depends on the Repository, Archive and Cache
// interfaces defined in repository.go. It never imports net/http or
// database/sql directly.
package audit

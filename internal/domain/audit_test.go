package domain

import "testing"

func TestAuditValidate(t *testing.T) {
	tests := []struct {
		name    string
		audit   Audit
		wantErr bool
	}{
		{"valid", Audit{Filename: "a.csv", Owner: "x", TotalSpend: 10, PotentialSavings: 4}, false},
		{"no filename", Audit{Owner: "x"}, true},
		{"no owner", Audit{Filename: "a.csv"}, true},
		{"negative", Audit{Filename: "a.csv", Owner: "x", TotalSpend: -1}, true},
		{"savings above spend", Audit{Filename: "a.csv", Owner: "x", TotalSpend: 1, PotentialSavings: 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.audit.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeOwner(t *testing.T) {
	if got := NormalizeOwner("  "); got != AnonymousOwner {
		t.Errorf("NormalizeOwner(blank) = %q", got)
	}
	if got := NormalizeOwner(" TestUser@Volleyball.com "); got != "testuser@volleyball.com" {
		t.Errorf("NormalizeOwner = %q", got)
	}
}

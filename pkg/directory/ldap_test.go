package directory

import "testing"

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter map[string]string
		want   string
	}{
		{"empty filter matches everything", nil, "(objectClass=*)"},
		{"single condition", map[string]string{"uid": "alice"}, "(uid=alice)"},
		{
			"multiple conditions are ANDed in key order",
			map[string]string{"uid": "alice", "objectClass": "inetOrgPerson"},
			"(&(objectClass=inetOrgPerson)(uid=alice))",
		},
		{
			"values are escaped",
			map[string]string{"cn": "a(b)*c"},
			`(cn=a\28b\29\2ac)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildFilter(tt.filter); got != tt.want {
				t.Errorf("buildFilter(%v) = %q, want %q", tt.filter, got, tt.want)
			}
		})
	}
}

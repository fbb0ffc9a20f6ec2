package version

import (
	"errors"
	"testing"
)

func TestParseSpecifier(t *testing.T) {
	tests := []struct {
		input   string
		op      string
		version string
	}{
		{">=1.2.3", ">=", "1.2.3"},
		{"=1.2.3", "==", "1.2.3"},
		{"== 1.2.3", "==", "1.2.3"},
		{"~=1.15", "~=", "1.15"},
		{"!=1.15.3", "!=", "1.15.3"},
		{"==3.8.*", "==", "3.8.*"},
		{"===foobar", "===", "foobar"},
	}

	for _, tt := range tests {
		spec, err := ParseSpecifier(tt.input)
		if err != nil {
			t.Fatalf("ParseSpecifier(%q) failed: %v", tt.input, err)
		}
		if spec.Operator() != tt.op || spec.Version() != tt.version {
			t.Errorf("ParseSpecifier(%q) = (%q, %q), want (%q, %q)",
				tt.input, spec.Operator(), spec.Version(), tt.op, tt.version)
		}
	}
}

func TestParseSpecifierInvalid(t *testing.T) {
	for _, input := range []string{"1.2.3", "", ">=", ">=1.2.3e", "~=1", ">=3.8.*", "==1.0a1.*"} {
		_, err := ParseSpecifier(input)
		var invalid *InvalidSpecifierError
		if !errors.As(err, &invalid) {
			t.Errorf("ParseSpecifier(%q) error = %v, want *InvalidSpecifierError", input, err)
		}
	}
}

func TestInvalidSpecifierMessage(t *testing.T) {
	_, err := ParseSpecifier("1.2.3")
	if err == nil || err.Error() != `Specifier "1.2.3" is invalid.` {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSpecifierSetContains(t *testing.T) {
	tests := []struct {
		set     string
		version string
		want    bool
	}{
		{"==1.0.0", "1.0.0", true},
		{"==1.0.0", "1.0", true},
		{"==1.0.1", "1.0.0", false},
		{">=1.0.0", "0.9.0", false},
		{">=1.0.0", "1.0.1", true},
		{">1.0.0", "1.0.0", false},
		{">1.0.0", "1.0.1", true},
		{">1.0.0", "1.0.0.post1", false},
		{"<=1.0.0", "1.0.1", false},
		{"<1.0.0", "1.0.0", false},
		{"<1.0.0", "0.9.0", true},
		{"<1.0.0", "1.0.0rc1", false},
		{"!=1.15.3", "1.15.3", false},
		{"~=1.15,!=1.15.3", "1.15.2", true},
		{"~=1.15,!=1.15.3", "1.15.3", false},
		{"~=1.15,!=1.15.3", "2.0", false},
		{"~=2.2.0", "2.2.5", true},
		{"~=2.2.0", "2.3.0", false},
		{">=3.8.1,<3.9", "3.8.9", true},
		{">=3.8.1,<3.9", "3.9.0", false},
		{"==3.8.*", "3.8.10", true},
		{"==3.8.*", "3.9.0", false},
		{"!=3.8.*", "3.9.0", true},
		{">=3.8,<3.9.0a0", "3.8.9", true},
		{">=1.0", "2.0b1", false},
		{">=1.0b1", "2.0b1", true},
		{"<1.2.1.1", "1.1.1.11", true},
		{"<1.2.1.1", "1.2.1.2", false},
		{"", "1.0", true},
	}

	for _, tt := range tests {
		set, err := ParseSpecifierSet(tt.set)
		if err != nil {
			t.Fatalf("ParseSpecifierSet(%q) failed: %v", tt.set, err)
		}
		if got := set.Contains(MustParse(tt.version)); got != tt.want {
			t.Errorf("%q contains %q = %v, want %v", tt.set, tt.version, got, tt.want)
		}
	}
}

func TestSpecifierSetContainsString(t *testing.T) {
	set, err := ParseSpecifierSet(">=1.0")
	if err != nil {
		t.Fatal(err)
	}
	if set.ContainsString("not a version") {
		t.Error("unparseable version must not be contained")
	}
	if !set.ContainsString("1.5") {
		t.Error("expected 1.5 to be contained")
	}
}

func TestSpecifierSetString(t *testing.T) {
	set, err := ParseSpecifierSet(">=1.2.3, <2.0")
	if err != nil {
		t.Fatal(err)
	}
	if set.String() != ">=1.2.3,<2.0" {
		t.Errorf("String() = %q", set.String())
	}
	if set.Len() != 2 {
		t.Errorf("Len() = %d, want 2", set.Len())
	}
}

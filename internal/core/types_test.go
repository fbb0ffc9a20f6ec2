package core

import (
	"errors"
	"testing"

	"github.com/git-pkgs/condamigrate/internal/version"
)

func TestPinnedPackageBrokenSpecifiers(t *testing.T) {
	tests := []struct {
		specifier string
		version   string
	}{
		{"==1.0.1", "1.0.0"},
		{">=1.0.0", "0.9.0"},
		{">1.0.0", "1.0.0"},
		{">1.0.0", "0.9.0"},
		{"<=1.0.0", "1.0.1"},
		{"<1.0.0", "1.0.0"},
		{"<1.0.0", "1.0.1"},
		{"<1.2.1a", "1.2.1b"},
	}

	for _, tt := range tests {
		t.Run(tt.specifier+"_"+tt.version, func(t *testing.T) {
			_, err := NewPinnedPackage("thing", tt.version, tt.specifier)
			var broken *BrokenSpecifierError
			if !errors.As(err, &broken) {
				t.Fatalf("NewPinnedPackage error = %v, want *BrokenSpecifierError", err)
			}
			if !errors.Is(err, ErrConstruction) {
				t.Error("error does not wrap ErrConstruction")
			}
			want := `Broken specifier: version "` + tt.version + `" does not fulfil specifier "` + tt.specifier + `" contract.`
			if err.Error() != want {
				t.Errorf("Error() = %q, want %q", err.Error(), want)
			}
		})
	}
}

func TestPinnedPackage(t *testing.T) {
	tests := []struct {
		specifier string
		version   string
	}{
		{"==1.0.0", "1.0.0"},
		{">=1.0.0", "1.0.0"},
		{">=1.0.0", "1.0.1"},
		{">1.0.0", "1.0.1"},
		{"<=1.0.0", "1.0.0"},
		{"<=1.0.0", "0.9.0"},
		{"<1.0.0", "0.9.0"},
		{"<1.2.1a", "1.1.1k"},
		{"==1.1.1k", "1.1.1k"},
	}

	for _, tt := range tests {
		pin, err := NewPinnedPackage("thing", tt.version, tt.specifier)
		if err != nil {
			t.Errorf("NewPinnedPackage(%q, %q) failed: %v", tt.version, tt.specifier, err)
			continue
		}
		if pin.Name != "thing" || pin.Version != tt.version {
			t.Errorf("unexpected pin %s", pin)
		}
	}
}

func TestPinnedPackageWithoutVersion(t *testing.T) {
	pin, err := NewPinnedPackage("openssl", "", "<1.2.1a")
	if err != nil {
		t.Fatalf("NewPinnedPackage failed: %v", err)
	}
	if pin.Specifier.String() != "<1.2.1.1" {
		t.Errorf("Specifier = %q, want %q", pin.Specifier.String(), "<1.2.1.1")
	}
}

func TestPinnedFromSpecifier(t *testing.T) {
	tests := []struct {
		specifier string
		version   string
	}{
		{"==1.19.5", "1.19.5"},
		{">=1.0", ""},
		{"==3.8.*", ""},
		{">=1.0,<2.0", ""},
	}
	for _, tt := range tests {
		pin, err := PinnedFromSpecifier("numpy", tt.specifier)
		if err != nil {
			t.Fatalf("PinnedFromSpecifier(%q) failed: %v", tt.specifier, err)
		}
		if pin.Version != tt.version {
			t.Errorf("PinnedFromSpecifier(%q).Version = %q, want %q", tt.specifier, pin.Version, tt.version)
		}
	}
}

func TestPinnedPackageInvalidSpecifier(t *testing.T) {
	_, err := NewPinnedPackage("thing", "1.0", "1.0")
	if !errors.Is(err, version.ErrInvalid) {
		t.Errorf("error = %v, want version.ErrInvalid", err)
	}
}

func TestCannotMakeCompareKey(t *testing.T) {
	_, err := Package{Name: "test"}.CompareKey()
	var nc *NotComparableError
	if !errors.As(err, &nc) {
		t.Fatalf("CompareKey error = %v, want *NotComparableError", err)
	}
	want := `Package "test" cannot be compared to another package: no version information found`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrNotComparable) {
		t.Error("error does not wrap ErrNotComparable")
	}
}

func TestInvalidVersionWhenParsing(t *testing.T) {
	_, err := Package{Name: "test", Version: "invalid.version"}.ParseVersion()
	if err == nil || err.Error() != `Version "invalid.version" is invalid.` {
		t.Errorf("ParseVersion error = %v", err)
	}
}

func TestSortPackages(t *testing.T) {
	pkgs := []Package{
		{Name: "numpy", Version: "1.19.5", Build: "py38h9e6c65a_0", BuildNumber: BuildNum(0)},
		{Name: "numpy", Version: "1.19.5", Build: "py38he594345_3", BuildNumber: BuildNum(3)},
		{Name: "numpy", Version: "1.20.0", Build: "py38h_0", BuildNumber: BuildNum(0)},
		{Name: "numpy", Version: "1.19.5", Build: "py38h9e6c65a_1", BuildNumber: BuildNum(1)},
		{Name: "numpy", Version: "1.19.5", Build: "py38hbf7bb01_1", BuildNumber: BuildNum(1)},
		{Name: "numpy", Version: "1.9.3", Build: "py27_0", BuildNumber: BuildNum(0)},
	}
	if err := SortPackages(pkgs); err != nil {
		t.Fatalf("SortPackages failed: %v", err)
	}

	want := []string{"py38h_0", "py38he594345_3", "py38h9e6c65a_1", "py38hbf7bb01_1", "py38h9e6c65a_0", "py27_0"}
	for i, p := range pkgs {
		if p.Build != want[i] {
			t.Errorf("position %d = %s (%s), want build %s", i, p, p.Build, want[i])
		}
	}
}

func TestSortPackagesBuildNumberOnly(t *testing.T) {
	pkgs := []Package{
		{Name: "x", BuildNumber: BuildNum(1)},
		{Name: "x", BuildNumber: BuildNum(7)},
		{Name: "x", BuildNumber: BuildNum(3)},
	}
	if err := SortPackages(pkgs); err != nil {
		t.Fatalf("SortPackages failed: %v", err)
	}
	for i, want := range []int{7, 3, 1} {
		if *pkgs[i].BuildNumber != want {
			t.Errorf("position %d build number = %d, want %d", i, *pkgs[i].BuildNumber, want)
		}
	}
}

func TestSortPackagesNotComparable(t *testing.T) {
	pkgs := []Package{
		{Name: "x", Version: "1.0"},
		{Name: "x"},
	}
	if err := SortPackages(pkgs); !errors.Is(err, ErrNotComparable) {
		t.Errorf("SortPackages error = %v, want ErrNotComparable", err)
	}
}

func TestComparePackagesLetterSuffix(t *testing.T) {
	c, err := ComparePackages(NewPackage("openssl", "1.1.1k"), NewPackage("openssl", "1.1.1"))
	if err != nil {
		t.Fatal(err)
	}
	if c != 1 {
		t.Errorf("1.1.1k vs 1.1.1 = %d, want 1", c)
	}
}

func TestPackageFormatting(t *testing.T) {
	p := Package{Name: "numpy", Version: "1.19.5", Build: "py38he594345_3", BuildNumber: BuildNum(3)}
	if got := p.FormatConda(); got != "numpy=1.19.5=py38he594345_3" {
		t.Errorf("FormatConda() = %q", got)
	}
	if got := p.FormatPip(); got != "numpy==1.19.5" {
		t.Errorf("FormatPip() = %q", got)
	}
	if got := p.String(); got != "numpy-1.19.5" {
		t.Errorf("String() = %q", got)
	}
	if got := NewPackage("pip", "").FormatConda(); got != "pip" {
		t.Errorf("FormatConda() = %q", got)
	}
}

func TestRequirementFromLock(t *testing.T) {
	tests := []struct {
		value string
		kind  RestrictionKind
		match string
		miss  string
	}{
		{"", Unrestricted, "0.1", ""},
		{"*", Unrestricted, "99", ""},
		{"==1.19.5", Specified, "1.19.5", "1.19.4"},
		{">=1.0,<2.0", Specified, "1.5", "2.0"},
		{"1.19.5", Exact, "1.19.5", "1.19.6"},
	}
	for _, tt := range tests {
		req, err := RequirementFromLock("numpy", tt.value)
		if err != nil {
			t.Fatalf("RequirementFromLock(%q) failed: %v", tt.value, err)
		}
		if req.Restriction.Kind() != tt.kind {
			t.Errorf("RequirementFromLock(%q) kind = %v, want %v", tt.value, req.Restriction.Kind(), tt.kind)
		}
		if !req.Restriction.Match(version.MustParse(tt.match)) {
			t.Errorf("RequirementFromLock(%q) should match %q", tt.value, tt.match)
		}
		if tt.miss != "" && req.Restriction.Match(version.MustParse(tt.miss)) {
			t.Errorf("RequirementFromLock(%q) should not match %q", tt.value, tt.miss)
		}
	}
}

func TestZeroRestrictionMatchesAll(t *testing.T) {
	var r Restriction
	if !r.Match(version.MustParse("1.0")) {
		t.Error("zero restriction should match")
	}
	if r.String() != "*" {
		t.Errorf("String() = %q", r.String())
	}
}

func TestRequirementFormatPip(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"", "requests"},
		{"==2.28.1", "requests==2.28.1"},
		{">=2.0,<3", "requests>=2.0,<3"},
		{"2.28.1", "requests==2.28.1"},
	}
	for _, tt := range tests {
		req, err := RequirementFromLock("requests", tt.value)
		if err != nil {
			t.Fatal(err)
		}
		if got := req.FormatPip(); got != tt.want {
			t.Errorf("FormatPip(%q) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

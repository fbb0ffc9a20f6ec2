package condamigrate_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/git-pkgs/condamigrate"
	_ "github.com/git-pkgs/condamigrate/all"
)

func BenchmarkNew(b *testing.B) {
	backends := []string{"anaconda", "conda", "mamba"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = condamigrate.New(backends[i%len(backends)], condamigrate.Options{})
	}
}

func BenchmarkSearchCached(b *testing.B) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"name": "numpy", "files": %s}`, anacondaFiles["numpy"])
	}))
	defer server.Close()

	s, err := condamigrate.New("anaconda", condamigrate.Options{BaseURL: server.URL})
	if err != nil {
		b.Fatal(err)
	}
	cache, err := condamigrate.NewCache(b.TempDir())
	if err != nil {
		b.Fatal(err)
	}
	names := []string{"numpy"}
	ctx := context.Background()
	if _, err := condamigrate.Search(ctx, s, cache, names); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := condamigrate.Search(ctx, s, cache, names); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRequirementFromPURL(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = condamigrate.RequirementFromPURL("pkg:conda/conda-forge/numpy@1.19.5")
	}
}

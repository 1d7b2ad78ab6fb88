package mirror

import (
	"context"
	"errors"
	"testing"

	"github.com/showrunner/showrunner/internal/catalog"
	"github.com/showrunner/showrunner/internal/testutil"
)

func testConfiguration(baseURL string) *catalog.RemoteConfiguration {
	return &catalog.RemoteConfiguration{
		Images: catalog.ImageConfiguration{
			BaseURL:       "http://image.tmdb.org/t/p/",
			SecureBaseURL: baseURL,
			PosterSizes:   []string{"w92", "w500", "original"},
			BackdropSizes: []string{"w300", "w780"},
		},
		ChangeKeys: []string{"name", "overview", "season"},
	}
}

func TestConfigStore_GetBeforeReplace(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	store := NewConfigStore(tdb.Conn, tdb.Logger)

	if store.Current() != nil {
		t.Error("Current() should be nil before any refresh")
	}

	_, err := store.Get(context.Background())
	if !errors.Is(err, ErrConfigurationNotFound) {
		t.Errorf("Get() error = %v, want ErrConfigurationNotFound", err)
	}
}

func TestConfigStore_ReplaceIsSingleton(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	store := NewConfigStore(tdb.Conn, tdb.Logger)
	ctx := context.Background()

	if err := store.Replace(ctx, testConfiguration("https://one.example/")); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if err := store.Replace(ctx, testConfiguration("https://two.example/")); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	conf, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if conf.Images.SecureBaseURL != "https://two.example/" {
		t.Errorf("SecureBaseURL = %q, want the latest replacement", conf.Images.SecureBaseURL)
	}

	var count int
	if err := tdb.Conn.QueryRow(`SELECT COUNT(*) FROM configuration`).Scan(&count); err != nil {
		t.Fatalf("count query error = %v", err)
	}
	if count != 1 {
		t.Errorf("configuration rows = %d, want exactly 1", count)
	}

	current := store.Current()
	if current == nil || current.Images.SecureBaseURL != "https://two.example/" {
		t.Errorf("Current() = %+v, want the latest replacement", current)
	}
}

func TestConfigStore_WarmsFromDatabase(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	first := NewConfigStore(tdb.Conn, tdb.Logger)
	if err := first.Replace(context.Background(), testConfiguration("https://warm.example/")); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	// A fresh store over the same database starts with the persisted copy.
	second := NewConfigStore(tdb.Conn, tdb.Logger)
	current := second.Current()
	if current == nil || current.Images.SecureBaseURL != "https://warm.example/" {
		t.Errorf("Current() = %+v, want persisted configuration", current)
	}
}

func TestRemoteConfiguration_ImageBaseURLs(t *testing.T) {
	conf := testConfiguration("https://img.example/")

	poster, err := conf.PosterBaseURL("w500")
	if err != nil {
		t.Fatalf("PosterBaseURL() error = %v", err)
	}
	if poster != "https://img.example/w500" {
		t.Errorf("PosterBaseURL() = %q", poster)
	}

	// Preferred size not offered: fall back to the first listed size.
	backdrop, err := conf.BackdropBaseURL("w9999")
	if err != nil {
		t.Fatalf("BackdropBaseURL() error = %v", err)
	}
	if backdrop != "https://img.example/w300" {
		t.Errorf("BackdropBaseURL() = %q", backdrop)
	}

	// Empty size list is an error.
	if _, err := conf.StillBaseURL("w300"); !errors.Is(err, catalog.ErrNoImageSizes) {
		t.Errorf("StillBaseURL() error = %v, want ErrNoImageSizes", err)
	}
}

package seed

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lysyi3m/ad-comb/app/ads"
	"gopkg.in/yaml.v3"
)

// Loader reads seed catalogs from a YAML file or a directory of them
type Loader struct {
	path string
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load merges every catalog under the loader path. A missing path yields an
// empty catalog.
func (l *Loader) Load() (*Catalog, error) {
	catalog := &Catalog{}

	info, err := os.Stat(l.path)
	if os.IsNotExist(err) {
		return catalog, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat seed path: %w", err)
	}

	files := []string{l.path}
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(l.path, "*.yaml"))
		if err != nil {
			return nil, fmt.Errorf("failed to find YAML files: %w", err)
		}
		ymlFiles, err := filepath.Glob(filepath.Join(l.path, "*.yml"))
		if err != nil {
			return nil, fmt.Errorf("failed to find YML files: %w", err)
		}
		files = append(files, ymlFiles...)
	}

	for _, file := range files {
		c, err := l.loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}
		if err := validate(c); err != nil {
			return nil, fmt.Errorf("invalid seed %s: %w", file, err)
		}

		catalog.Ads = append(catalog.Ads, c.Ads...)
		catalog.Posts = append(catalog.Posts, c.Posts...)
		slog.Info("Loaded seed catalog", "file", file, "ads", len(c.Ads), "posts", len(c.Posts))
	}

	return catalog, nil
}

func (l *Loader) loadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	dir := filepath.Dir(path)
	for i := range c.Ads {
		if f := c.Ads[i].ImageFile; f != "" && !filepath.IsAbs(f) {
			c.Ads[i].ImageFile = filepath.Join(dir, f)
		}
	}

	setDefaults(&c)
	return &c, nil
}

func setDefaults(c *Catalog) {
	for i := range c.Ads {
		ad := &c.Ads[i]
		if ad.Type == "" {
			ad.Type = string(ads.TypeBanner)
		}
		if ad.Plan == "" {
			ad.Plan = string(ads.PlanBasic)
		}
		if ad.Status == "" {
			ad.Status = string(ads.StatusPending)
		}
		if ad.Duration == 0 {
			ad.Duration = 30
		}
		if ad.Owner == "" {
			ad.Owner = "seed"
		}
	}
	for i := range c.Posts {
		if c.Posts[i].Author == "" {
			c.Posts[i].Author = "seed"
		}
	}
}

func validate(c *Catalog) error {
	for i, ad := range c.Ads {
		if err := newAd(ad).Validate(); err != nil {
			return fmt.Errorf("ad at index %d: %w", i, err)
		}
		switch ads.Status(ad.Status) {
		case ads.StatusPending, ads.StatusApproved, ads.StatusActive, ads.StatusPaused:
		default:
			return fmt.Errorf("ad at index %d: unsupported seed status %q", i, ad.Status)
		}
	}
	for i, p := range c.Posts {
		if p.Title == "" {
			return fmt.Errorf("post at index %d: title is required", i)
		}
	}
	return nil
}

func newAd(ad Ad) ads.NewAd {
	return ads.NewAd{
		OwnerID:      ad.Owner,
		Type:         ads.Type(ad.Type),
		Title:        ad.Title,
		Content:      ad.Content,
		Plan:         ads.Plan(ad.Plan),
		Section:      ad.Section,
		Price:        ad.Price,
		TargetURL:    ad.Target,
		CallToAction: ad.CTA,
		DurationDays: ad.Duration,
		ImageURL:     ad.ImageURL,
	}
}

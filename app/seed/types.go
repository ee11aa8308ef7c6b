package seed

// Catalog is a set of ads and posts loaded into an empty database
type Catalog struct {
	Ads   []Ad   `yaml:"ads"`
	Posts []Post `yaml:"posts"`
}

// Ad describes a seeded ad. Status defaults to pending; an active ad is
// activated on load so it gets an expiration date.
type Ad struct {
	Owner    string  `yaml:"owner"`
	Type     string  `yaml:"type"`
	Title    string  `yaml:"title"`
	Content  string  `yaml:"content"`
	Plan     string  `yaml:"plan"`
	Section  string  `yaml:"section"`
	Price    float64 `yaml:"price"`
	Status   string  `yaml:"status"`
	Duration int     `yaml:"duration"` // days
	Target   string  `yaml:"target_url"`
	CTA      string  `yaml:"call_to_action"`
	ImageURL string  `yaml:"image_url"`

	// ImageFile is a creative on disk, relative to the catalog file. It is
	// copied into the asset store under seed/<name>.
	ImageFile string `yaml:"image_file"`
}

type Post struct {
	Section string `yaml:"section"`
	Title   string `yaml:"title"`
	Body    string `yaml:"body"`
	Author  string `yaml:"author"`
}

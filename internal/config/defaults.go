package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/folio/data/cursors.db"
	}
	if cfg.Storage.LibraryPath == "" {
		cfg.Storage.LibraryPath = "/usr/local/var/folio/library"
	}
	if cfg.Reader.PageBudget == 0 {
		cfg.Reader.PageBudget = 900
	}
	if cfg.Reader.ParagraphsPerPage == 0 {
		cfg.Reader.ParagraphsPerPage = 3
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".epub"}
	}
}

package urlfilter

// Rules is the data behind the admission filter. It is loaded from the
// configuration file so that scope can change without touching code.
type Rules struct {
	// Schemes that may be crawled.
	Schemes []string `yaml:"schemes"`

	// Domains are registrable suffixes. A host is in scope when it equals
	// one of them or is a subdomain of one.
	Domains []string `yaml:"domains"`

	// Extensions are path suffixes (without the dot) of non-HTML content.
	Extensions []string `yaml:"extensions"`

	// QueryDeny lists substrings that reject a URL when found in its query.
	QueryDeny []string `yaml:"query_deny"`

	// PathDeny lists substrings that reject a URL when found in its path.
	PathDeny []string `yaml:"path_deny"`

	// RejectCalendar rejects paths and queries containing YYYY-MM or
	// YYYY-MM-DD dates.
	RejectCalendar bool `yaml:"reject_calendar"`
}

// NonCrawlableExtensions lists suffixes of media, archives, office documents,
// executables and other content not worth crawling.
var NonCrawlableExtensions = []string{
	"css", "js", "bmp", "gif", "jpg", "jpeg", "ico", "png", "tif", "tiff",
	"mid", "mp2", "mp3", "mp4", "wav", "avi", "mov", "mpeg", "ram", "m4v",
	"mkv", "ogg", "ogv", "pdf", "ps", "eps", "tex", "ppt", "pptx", "doc",
	"docx", "xls", "xlsx", "names", "data", "dat", "exe", "bz2", "tar", "msi",
	"bin", "7z", "psd", "dmg", "iso", "epub", "dll", "cnf", "tgz", "sha1",
	"thmx", "mso", "arff", "rtf", "jar", "csv", "rm", "smil", "wmv", "swf",
	"wma", "zip", "rar", "gz", "xml",
}

// DefaultRules returns the UCI ICS crawl scope.
func DefaultRules() Rules {
	return Rules{
		Schemes:        []string{"http", "https"},
		Domains:        []string{"ics.uci.edu", "cs.uci.edu", "informatics.uci.edu", "stat.uci.edu"},
		Extensions:     append([]string(nil), NonCrawlableExtensions...),
		QueryDeny:      []string{"filter"},
		PathDeny:       []string{"login"},
		RejectCalendar: true,
	}
}

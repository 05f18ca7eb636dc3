package harvest

import (
	"hash/fnv"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// StableFilename derives a deterministic local filename for a PDF URL.
// The base name keeps the original document name for readability while
// a hash of the path and query disambiguates same-named files hosted
// under different directories. Repeated harvester runs map the same
// URL to the same file.
func StableFilename(pdfURL string) string {
	u, err := url.Parse(pdfURL)
	if err != nil {
		return "document__" + hashSuffix(pdfURL) + ".pdf"
	}

	base := path.Base(u.Path)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = sanitize(base)
	if base == "" || base == "." || base == "/" {
		base = "document"
	}
	if len(base) > 80 {
		base = base[:80]
	}
	return base + "__" + hashSuffix(u.Path+"?"+u.RawQuery) + ".pdf"
}

func hashSuffix(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return strconv.FormatUint(uint64(h.Sum32()%100000000), 10)
}

func sanitize(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

package resolver

import (
	"html"
	"net/url"
	"strings"
)

var rejectedSchemes = []string{"javascript:", "data:", "about:", "blob:", "mailto:", "tel:"}

// cleanRef undoes the escaping commonly found around URLs embedded in HTML
// and inline scripts.
func cleanRef(ref string) string {
	ref = strings.TrimSpace(ref)
	ref = strings.Trim(ref, `"'`+"`")
	ref = strings.ReplaceAll(ref, `\/`, "/")
	ref = strings.ReplaceAll(ref, `\u0026`, "&")
	ref = strings.ReplaceAll(ref, `\u002F`, "/")
	return html.UnescapeString(ref)
}

// Absolutize resolves ref against base. Protocol-relative refs take the
// base scheme, root-relative refs take its scheme and host, and other relative
// refs are joined to the base directory with "../" segments collapsed. The
// original encoding of ref is preserved. Only http(s) results are accepted.
func Absolutize(ref, base string) (string, bool) {
	ref = cleanRef(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}
	lower := strings.ToLower(ref)
	for _, scheme := range rejectedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}

	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return validHTTPURL(ref)
	}

	baseURL, err := url.Parse(strings.TrimSpace(base))
	if err != nil || baseURL.Host == "" {
		return "", false
	}
	scheme := baseURL.Scheme
	if scheme == "" {
		scheme = "https"
	}

	switch {
	case strings.HasPrefix(ref, "//"):
		return validHTTPURL(scheme + ":" + ref)
	case strings.HasPrefix(ref, "/"):
		return validHTTPURL(scheme + "://" + baseURL.Host + ref)
	case strings.HasPrefix(ref, "?"):
		return validHTTPURL(scheme + "://" + baseURL.Host + baseURL.EscapedPath() + ref)
	}

	dir := baseURL.EscapedPath()
	if i := strings.LastIndex(dir, "/"); i >= 0 {
		dir = dir[:i+1]
	} else {
		dir = "/"
	}
	for {
		switch {
		case strings.HasPrefix(ref, "./"):
			ref = ref[2:]
			continue
		case strings.HasPrefix(ref, "../"):
			ref = ref[3:]
			trimmed := strings.TrimSuffix(dir, "/")
			if i := strings.LastIndex(trimmed, "/"); i >= 0 {
				dir = trimmed[:i+1]
			} else {
				dir = "/"
			}
			continue
		}
		break
	}
	return validHTTPURL(scheme + "://" + baseURL.Host + dir + ref)
}

func validHTTPURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if strings.ContainsAny(raw, " \t\r\n<>") {
		return "", false
	}
	return raw, true
}

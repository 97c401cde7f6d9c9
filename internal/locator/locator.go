// Package locator decides where catalog documents are fetched from.
//
// A viewer published on GitHub Pages reads documents from the raw content
// host of the repository it was published from. Anywhere else documents are
// addressed relative to the viewer, one directory up.
package locator

import (
	"net/url"
	"strings"
)

const (
	// HostingSuffix identifies a GitHub Pages host name (<owner>.github.io).
	HostingSuffix = ".github.io"
	// RawContentHost serves raw repository files.
	RawContentHost = "raw.githubusercontent.com"
	// Branch is the branch documents are read from on the raw content host.
	Branch = "main"
	// ParentPrefix is prepended to document paths when no host is recognized.
	ParentPrefix = "../"
)

// HostContext identifies the repository a published viewer belongs to.
type HostContext struct {
	Owner string `json:"owner" yaml:"owner"`
	Repo  string `json:"repo" yaml:"repo"`
}

// Detect inspects a host name and URL path. It reports false when the host is
// not a recognized Pages host or when the owner or repo cannot be extracted.
func Detect(hostname, urlPath string) (HostContext, bool) {
	if hostname == "" || !strings.HasSuffix(hostname, HostingSuffix) {
		return HostContext{}, false
	}

	owner, _, _ := strings.Cut(hostname, ".")

	var repo string
	for _, seg := range strings.Split(urlPath, "/") {
		if seg != "" {
			repo = seg
			break
		}
	}

	if owner == "" || repo == "" {
		return HostContext{}, false
	}
	return HostContext{Owner: owner, Repo: repo}, true
}

// DetectURL applies Detect to the host and path of an absolute URL.
// Unparseable input is treated as "no recognized host".
func DetectURL(rawURL string) (HostContext, bool) {
	if rawURL == "" {
		return HostContext{}, false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return HostContext{}, false
	}
	return Detect(u.Hostname(), u.Path)
}

// ResolveAddress builds the fetch address for relativePath. A nil host yields
// a parent-relative path.
func ResolveAddress(host *HostContext, relativePath string) string {
	if host == nil {
		return ParentPrefix + relativePath
	}
	return "https://" + RawContentHost + "/" + host.Owner + "/" + host.Repo + "/" + Branch + "/" + relativePath
}

// RepositoryURL returns the repository page for host, or "#" when there is none.
func RepositoryURL(host *HostContext) string {
	if host == nil {
		return "#"
	}
	return "https://github.com/" + host.Owner + "/" + host.Repo
}

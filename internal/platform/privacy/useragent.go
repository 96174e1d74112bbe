package privacy

import (
	"strings"

	"github.com/mssola/useragent"
)

// Client is the coarse, non-identifying view of a User-Agent header that is
// safe to log.
type Client struct {
	Name   string // browser or tool name, lowercased
	Major  string // major version only
	OS     string
	Mobile bool
	Bot    bool
}

// String renders "name/major (os)" with "unknown" for missing parts.
func (c Client) String() string {
	return c.Name + "/" + c.Major + " (" + c.OS + ")"
}

// SummarizeUserAgent reduces a User-Agent header to Client. The full header,
// including build strings and device models, is never retained.
func SummarizeUserAgent(header string) Client {
	c := Client{Name: "unknown", Major: "unknown", OS: "unknown"}
	if strings.TrimSpace(header) == "" {
		return c
	}

	ua := useragent.New(header)
	name, version := ua.Browser()
	if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
		c.Name = name
	}
	if major, _, _ := strings.Cut(version, "."); major != "" {
		c.Major = major
	}
	if os := strings.ToLower(strings.TrimSpace(ua.OSInfo().Name)); os != "" {
		c.OS = os
	}
	c.Mobile = ua.Mobile()
	c.Bot = ua.Bot()
	return c
}

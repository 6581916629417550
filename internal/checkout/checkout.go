package checkout

import (
	"fmt"
	"net/url"
	"strings"
)

// Links holds the hosted payment link configured for each page length.
type Links struct {
	Four   string `toml:"link_4"`
	Eight  string `toml:"link_8"`
	Twelve string `toml:"link_12"`
}

var prices = map[int]string{
	4:  "$1.00",
	8:  "$1.49",
	12: "$1.99",
}

// Price returns the display price for a page length, or "" when unknown.
func Price(pageLength int) string {
	return prices[pageLength]
}

func (l Links) forPages(pageLength int) (string, error) {
	var link string
	switch pageLength {
	case 4:
		link = l.Four
	case 8:
		link = l.Eight
	case 12:
		link = l.Twelve
	default:
		return "", fmt.Errorf("no payment tier for %d pages", pageLength)
	}
	if link == "" {
		return "", fmt.Errorf("payment link for %d pages is not configured", pageLength)
	}
	return link, nil
}

// DownloadURL is the page the payment provider returns the buyer to.
func DownloadURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/Download?intake=" + url.QueryEscape(token)
}

// PaymentURL sets the "return" query parameter on the configured link for
// pageLength, keeping any parameters the link already carries.
func PaymentURL(links Links, pageLength int, returnURL string) (string, error) {
	link, err := links.forPages(pageLength)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse payment link: %w", err)
	}
	q := u.Query()
	q.Set("return", returnURL)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

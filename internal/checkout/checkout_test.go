package checkout

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLinks = Links{
	Four:   "https://pay.example.com/ncp/payment/AAA",
	Eight:  "https://pay.example.com/ncp/payment/BBB?locale=en_US",
	Twelve: "https://pay.example.com/ncp/payment/CCC?return=https%3A%2F%2Fold.example.com",
}

func TestDownloadURL(t *testing.T) {
	assert.Equal(t,
		"https://books.example.com/Download?intake=abc-_123",
		DownloadURL("https://books.example.com/", "abc-_123"))
}

func TestPaymentURL(t *testing.T) {
	ret := DownloadURL("https://books.example.com", "tok")

	t.Run("adds return param", func(t *testing.T) {
		got, err := PaymentURL(testLinks, 4, ret)
		require.NoError(t, err)

		u, err := url.Parse(got)
		require.NoError(t, err)
		assert.Equal(t, "/ncp/payment/AAA", u.Path)
		assert.Equal(t, ret, u.Query().Get("return"))
	})

	t.Run("keeps existing params", func(t *testing.T) {
		got, err := PaymentURL(testLinks, 8, ret)
		require.NoError(t, err)

		u, err := url.Parse(got)
		require.NoError(t, err)
		assert.Equal(t, "en_US", u.Query().Get("locale"))
		assert.Equal(t, ret, u.Query().Get("return"))
	})

	t.Run("overrides existing return", func(t *testing.T) {
		got, err := PaymentURL(testLinks, 12, ret)
		require.NoError(t, err)

		u, err := url.Parse(got)
		require.NoError(t, err)
		assert.Equal(t, []string{ret}, u.Query()["return"])
	})

	t.Run("unknown tier", func(t *testing.T) {
		_, err := PaymentURL(testLinks, 5, ret)
		assert.Error(t, err)
	})

	t.Run("unconfigured tier", func(t *testing.T) {
		_, err := PaymentURL(Links{}, 4, ret)
		assert.Error(t, err)
	})
}

func TestPrice(t *testing.T) {
	assert.Equal(t, "$1.00", Price(4))
	assert.Equal(t, "$1.49", Price(8))
	assert.Equal(t, "$1.99", Price(12))
	assert.Equal(t, "", Price(3))
}

package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksLikeFeed(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "rss", input: testRSSFeed, expected: true},
		{name: "atom", input: testAtomFeed, expected: true},
		{name: "rdf", input: testRDFFeed, expected: true},
		{name: "leading whitespace", input: "\n\n  <rss><channel/></rss>", expected: true},
		{name: "html page", input: "<!doctype html><html><body>hi</body></html>", expected: false},
		{name: "json", input: `{"version": "https://jsonfeed.org/version/1"}`, expected: false},
		{name: "empty", input: "   ", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, LooksLikeFeed([]byte(tt.input)))
		})
	}
}

func TestValidateStructure(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected error
	}{
		{name: "valid rss", input: testRSSFeed},
		{name: "rss without channel", input: `<rss version="2.0"><foo/></rss>`, expected: ErrRSSMissingChannel},
		{name: "rss without title or link", input: `<rss><channel><description>x</description></channel></rss>`, expected: ErrRSSMissingTitle},
		{name: "rss with only a link", input: `<rss><channel><link>https://ex.com</link></channel></rss>`},
		{name: "atom without title", input: `<feed><entry><id>1</id></entry></feed>`, expected: ErrAtomMissingTitle},
		{name: "rdf without channel", input: `<rdf:RDF><item><title>x</title></item></rdf:RDF>`, expected: ErrRDFMissingChannel},
		{name: "something else", input: `<html><body/></html>`, expected: ErrUnrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStructure(parse(t, tt.input))
			if tt.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

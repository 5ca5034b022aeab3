// Package identity derives the stable key an item is stored under.
package identity

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

// ItemID derives an item's key from its guid (or link, when the guid is blank)
// and the channel it belongs to.
//
// The result is UUID-shaped for readability only. Identical inputs always give
// the same key, which is what lets a re-fetched item find its existing row.
// With neither a guid nor a link every such item in a channel shares one key.
func ItemID(guid, link, channelID string) string {
	unique := link
	if strings.TrimSpace(guid) != "" {
		unique = guid
	}
	data := strings.TrimSpace(unique) + "|" + strings.TrimSpace(channelID)

	h1, h2 := hash(data)
	hex1 := fmt.Sprintf("%08x", h2)
	hex2 := fmt.Sprintf("%08x", h1)

	return fmt.Sprintf("%s-%s-%s-%s-%s%s", hex1, hex2[:4], hex2[4:], hex1[:4], hex1, hex2)
}

// hash runs two 32 bit lanes over the UTF-16 code units of s.
func hash(s string) (uint32, uint32) {
	var h1, h2 uint32 = 0xdeadbeef, 0x41c6ce57
	for _, ch := range utf16.Encode([]rune(s)) {
		h1 = (h1 ^ uint32(ch)) * 2654435761
		h2 = (h2 ^ uint32(ch)) * 1597334677
	}

	h1 = (h1 ^ (h1 >> 16)) * 2246822507
	h1 ^= (h2 ^ (h2 >> 13)) * 3266489909
	h2 = (h2 ^ (h2 >> 16)) * 2246822507
	h2 ^= (h1 ^ (h1 >> 13)) * 3266489909

	return h1, h2
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"regexp"
	"strings"

	"github.com/anacrolix/torrent/metainfo"
)

var (
	// magnetPattern is the accepted magnet grammar: a btih exact topic with a
	// 40-hex hash, followed by further parameters or nothing.
	magnetPattern = regexp.MustCompile(`^magnet:\?xt=urn:btih:([0-9a-fA-F]{40})(?:&|$)`)

	// embeddedMagnet finds a magnet inside markup or prose.
	embeddedMagnet = regexp.MustCompile(`magnet:\?xt=urn:btih:[0-9a-fA-F]{40}[^"'\s<>]*`)

	hexHash = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)
)

// Trackers are appended to magnets built from a bare info hash.
var Trackers = []string{
	"udp://tracker.opentrackr.org:1337/announce",
	"udp://open.stealth.si:80/announce",
	"udp://tracker.torrent.eu.org:451/announce",
	"udp://tracker.bittor.pw:1337/announce",
	"udp://public.popcorn-tracker.org:6969/announce",
	"udp://tracker.dler.org:6969/announce",
	"udp://exodus.desync.com:6969/announce",
	"udp://open.demonii.com:1337/announce",
}

// ValidMagnet reports whether s matches the accepted magnet grammar.
func ValidMagnet(s string) bool {
	return magnetPattern.MatchString(s)
}

// InfoHash returns the lowercase 40-hex hash of a valid magnet, or "".
func InfoHash(magnet string) string {
	m := magnetPattern.FindStringSubmatch(magnet)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

// ExtractMagnet returns the first magnet found in text, or "".
func ExtractMagnet(text string) string {
	m := embeddedMagnet.FindString(text)
	if !ValidMagnet(m) {
		return ""
	}
	return m
}

// BuildMagnet assembles a magnet from a hex info hash, a display name and
// the default tracker list. It returns "" for anything but a 40-hex hash.
func BuildMagnet(hash, name string) string {
	hash = strings.TrimSpace(hash)
	if !hexHash.MatchString(hash) {
		return ""
	}
	var ih metainfo.Hash
	if err := ih.FromHexString(hash); err != nil {
		return ""
	}
	m := metainfo.Magnet{
		InfoHash:    ih,
		DisplayName: name,
		Trackers:    Trackers,
	}
	return m.String()
}

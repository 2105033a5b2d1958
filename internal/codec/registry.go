package codec

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// registry maps URL schemes (and the bare "file" case) to an Opener. rtmpio
// registers "rtmp" and "rtmps" from its init(); ffmpegexec registers "file",
// "http" and "https" from its init(). A URL with no scheme (a bare path) is
// looked up as "file" by schemeOf. Kept as package state,
// mirroring the double-checked-locking registry pattern in
// internal/rtmp/server/registry.go, rather than threading an Opener through
// every call site.
var (
	regMu sync.RWMutex
	reg   = map[string]Opener{}
)

// Register associates an Opener with one or more URL schemes. Intended to be
// called from concrete adapters' init() functions.
func Register(opener Opener, schemes ...string) {
	regMu.Lock()
	defer regMu.Unlock()
	for _, s := range schemes {
		reg[s] = opener
	}
}

func schemeOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "file"
	}
	return strings.ToLower(u.Scheme)
}

func lookup(raw string) (Opener, error) {
	s := schemeOf(raw)
	regMu.RLock()
	o, ok := reg[s]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("codec: no opener registered for scheme %q (url %q)", s, raw)
	}
	return o, nil
}

// OpenDemuxer resolves url to the Opener registered for its scheme and opens
// a Demuxer against it.
func OpenDemuxer(ctx context.Context, rawURL string, interrupt InterruptFunc) (Demuxer, error) {
	o, err := lookup(rawURL)
	if err != nil {
		return nil, err
	}
	return o.OpenDemuxer(ctx, rawURL, interrupt)
}

// OpenMuxer resolves url to the Opener registered for its scheme and opens a
// Muxer against it.
func OpenMuxer(ctx context.Context, rawURL string, interrupt InterruptFunc) (Muxer, error) {
	o, err := lookup(rawURL)
	if err != nil {
		return nil, err
	}
	return o.OpenMuxer(ctx, rawURL, interrupt)
}

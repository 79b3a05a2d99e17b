package discord

import (
	"bytes"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

var opusTagsMagic = []byte("OpusTags")

// FrameProvider feeds the pages of an Ogg/Opus file to a voice connection.
// The file must carry one Opus packet per page.
type FrameProvider struct {
	mu     sync.Mutex
	reader *oggreader.OggReader
	closer io.Closer
	done   bool
}

// NewFrameProvider validates the Opus ID header of r and returns a provider
// positioned at the first audio page. r is closed when the provider finishes.
func NewFrameProvider(r io.ReadCloser) (*FrameProvider, error) {
	reader, _, err := oggreader.NewWith(r)
	if err != nil {
		_ = r.Close()
		return nil, errors.Wrap(err, "invalid ogg/opus stream")
	}
	return &FrameProvider{reader: reader, closer: r}, nil
}

// ProvideOpusFrame returns the next Opus packet, or io.EOF once the stream
// has ended or the provider was closed.
func (p *FrameProvider) ProvideOpusFrame() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done {
		return nil, io.EOF
	}

	for {
		payload, _, err := p.reader.ParseNextPage()
		if err != nil {
			p.finishLocked()
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, io.EOF
			}
			return nil, errors.Wrap(err, "failed to read ogg page")
		}
		// Comment header and empty pages carry no audio
		if len(payload) == 0 || bytes.HasPrefix(payload, opusTagsMagic) {
			continue
		}
		return payload, nil
	}
}

// Close stops the provider and releases the file.
func (p *FrameProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishLocked()
}

// Done reports whether the provider has no more frames.
func (p *FrameProvider) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *FrameProvider) finishLocked() {
	if p.done {
		return
	}
	p.done = true
	_ = p.closer.Close()
}

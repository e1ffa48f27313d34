package wireproto

import (
	"bytes"

	"github.com/google/uuid"

	"gitlab.com/gitlab-org/scm-cores/internal/log"
)

// Driver holds no state of its own beyond the logger scope; it exists
// mainly to give try_parse's gitaly-style call pattern a receiver to
// hang structured logging off, matching how praefect's coordinator
// wraps stateless dispatch behind a small struct.
type Driver struct{}

// NewDriver returns a ready-to-use Driver.
func NewDriver() *Driver {
	return &Driver{}
}

// rawPreviewLimit bounds how much of a failed buffer gets logged; the
// full raw text still travels on the returned error for a caller that
// wants it.
const rawPreviewLimit = 256

// TryParse tries the batch envelope first, falls back to a single
// command whenever the buffer definitively cannot be a batch request,
// and commits the first Done. A nil, nil return means "not enough
// bytes yet, call again once more arrive." A non-nil error is a hard
// grammar failure; the caller should close the connection, not retry.
func (d *Driver) TryParse(buffer []byte) (Request, []byte, error) {
	reqID := uuid.NewString()

	batch := parseBatchRequest(buffer)
	switch {
	case batch.isDone():
		log.WithRequestID(reqID).WithField("commands", len(batch.value.Reqs)).Debug("wireproto: parsed batch request")
		return batch.value, batch.rest, nil
	case batch.isIncomplete():
		// The buffer is still a valid prefix of "batch\n...": more bytes
		// could complete it as a batch request, so there is nothing to
		// gain by trying parse_singlerequest against the same bytes yet.
		return nil, nil, nil
	}
	return d.trySingle(buffer, reqID)
}

func (d *Driver) trySingle(buffer []byte, reqID string) (Request, []byte, error) {
	single := parseSingleRequest(buffer)
	switch {
	case single.isDone():
		log.WithRequestID(reqID).WithField("command", single.value.Req.commandName()).Debug("wireproto: parsed single request")
		return single.value, single.rest, nil
	case single.isIncomplete():
		return nil, nil, nil
	default:
		raw := lossyUTF8(buffer)
		log.WithRequestID(reqID).WithField("raw", preview(raw)).WithError(single.err).Warn("wireproto: hard parse error")
		return nil, nil, &ParseError{Detail: single.err.Error(), Raw: raw}
	}
}

// lossyUTF8 renders arbitrary wire bytes as a string, replacing any
// byte sequence that isn't valid UTF-8 rather than propagating it
// as-is (spec §4.7: "a lossy UTF-8 rendering of the buffer").
func lossyUTF8(buffer []byte) string {
	return string(bytes.ToValidUTF8(buffer, []byte("�")))
}

func preview(raw string) string {
	if len(raw) <= rawPreviewLimit {
		return raw
	}
	return raw[:rawPreviewLimit] + "..."
}

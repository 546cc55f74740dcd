package tlform

import (
	"fmt"
	"io"
	"net/http"
)

// DefaultMaxBody bounds how much of a response body ReadResponse keeps.
const DefaultMaxBody = 10 << 20

// InterceptedResponse is a completed asynchronous response under evaluation.
// It is request-scoped and never cached.
type InterceptedResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ReadResponse drains and closes resp.Body, keeping at most limit bytes.
// A limit <= 0 means DefaultMaxBody.
//
// A body longer than limit is never truncated: the returned response keeps
// its status and headers but no body, and the error wraps ErrBodyTooLarge.
func ReadResponse(resp *http.Response, limit int64) (*InterceptedResponse, error) {
	defer resp.Body.Close()
	if limit <= 0 {
		limit = DefaultMaxBody
	}
	out := &InterceptedResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return out, fmt.Errorf("tlform: read response: %w", err)
	}
	if int64(len(body)) > limit {
		return out, fmt.Errorf("%w (limit %d bytes)", ErrBodyTooLarge, limit)
	}
	out.Body = body
	return out, nil
}

func (r *InterceptedResponse) String() string {
	return fmt.Sprintf("%d %s (%d bytes)", r.StatusCode, http.StatusText(r.StatusCode), len(r.Body))
}

package processor

import (
	"context"
	"fmt"
	"os"
	"time"

	"animrender/internal/pkg/errors"
	"animrender/internal/ports"
)

// Published is the outcome of a successful publish.
type Published struct {
	URL       string
	ObjectKey string
	ExpiresAt time.Time
	Size      int64
}

// Publisher moves a finished video into the configured storage and returns a
// URL a client can fetch it from.
type Publisher struct {
	sp        ports.StorageProvider
	urlExpiry time.Duration
}

func NewPublisher(sp ports.StorageProvider, urlExpiry time.Duration) *Publisher {
	if urlExpiry <= 0 {
		urlExpiry = 7 * 24 * time.Hour
	}
	return &Publisher{sp: sp, urlExpiry: urlExpiry}
}

// Remote reports whether uploads leave the host.
func (p *Publisher) Remote() bool { return p.sp.Provider() != "localfs" }

func (p *Publisher) Provider() string { return p.sp.Provider() }

func (p *Publisher) Publish(ctx context.Context, localPath, jobID string) (Published, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return Published{}, errors.WrapWithCode(err, errors.CodePublishFailed, "publisher.open", err.Error())
	}
	defer f.Close()

	var size int64
	if st, err := f.Stat(); err == nil {
		size = st.Size()
	}

	key := ObjectKey(p.sp.Provider(), jobID)
	out, err := p.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   key,
		ContentType: "video/mp4",
		Reader:      f,
		Size:        size,
	})
	if err != nil {
		return Published{}, errors.WrapWithCode(err, errors.CodePublishFailed, "publisher.put",
			fmt.Sprintf("upload to %s failed: %v", p.sp.Provider(), err)).
			WithField("object_key", key)
	}

	signed, err := p.sp.GetSignedURL(ctx, out.ObjectKey, p.urlExpiry)
	if err != nil {
		return Published{}, errors.WrapWithCode(err, errors.CodePublishFailed, "publisher.url",
			fmt.Sprintf("url generation on %s failed: %v", p.sp.Provider(), err)).
			WithField("object_key", out.ObjectKey)
	}

	return Published{
		URL:       signed.URL,
		ObjectKey: out.ObjectKey,
		ExpiresAt: signed.ExpiresAt,
		Size:      out.Size,
	}, nil
}

package gdrive

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"animrender/internal/ports"
)

// Client implements ports.StorageProvider backed by Google Drive.
// ObjectKey is used as the Drive file name on upload; PutObject returns the
// Drive fileId, which GetSignedURL expects.
type Client struct {
	srv      *drive.Service
	folderID string
}

type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// OAuthConfig is the client configuration shared with the gdrive-auth tool.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
		RedirectURL:  redirectURL,
	}
}

// New builds a Drive client from a long lived refresh token.
func New(ctx context.Context, creds Credentials, folderID string) (*Client, error) {
	conf := OAuthConfig(creds.ClientID, creds.ClientSecret, "")
	httpClient := conf.Client(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})

	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("gdrive service: %w", err)
	}
	return NewClient(srv, folderID), nil
}

func NewClient(srv *drive.Service, folderID string) *Client {
	return &Client{srv: srv, folderID: folderID}
}

func (c *Client) Provider() string { return "gdrive" }

func (c *Client) PutObject(ctx context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	if in.ObjectKey == "" {
		return ports.PutObjectOutput{}, fmt.Errorf("object_key is required")
	}

	file := &drive.File{Name: in.ObjectKey}
	if c.folderID != "" {
		file.Parents = []string{c.folderID}
	}

	call := c.srv.Files.Create(file).SupportsAllDrives(true)
	if in.ContentType != "" {
		call = call.Media(in.Reader, googleapi.ContentType(in.ContentType))
	} else {
		call = call.Media(in.Reader)
	}

	created, err := call.Context(ctx).Do()
	if err != nil {
		return ports.PutObjectOutput{}, fmt.Errorf("gdrive upload failed: %w", err)
	}

	return ports.PutObjectOutput{ObjectKey: created.Id, Size: in.Size}, nil
}

// GetSignedURL shares the file with anyone holding the link and returns its
// download link. Drive links do not expire; ExpiresAt is advisory.
func (c *Client) GetSignedURL(ctx context.Context, objectKey string, expiresIn time.Duration) (ports.SignedURLOutput, error) {
	_, err := c.srv.Permissions.Create(objectKey, &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}).SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return ports.SignedURLOutput{}, fmt.Errorf("gdrive share failed: %w", err)
	}

	f, err := c.srv.Files.Get(objectKey).
		Fields("id", "webContentLink", "webViewLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return ports.SignedURLOutput{}, fmt.Errorf("gdrive link lookup failed: %w", err)
	}

	link := f.WebContentLink
	if link == "" {
		link = f.WebViewLink
	}
	return ports.SignedURLOutput{URL: link, ExpiresAt: time.Now().UTC().Add(expiresIn)}, nil
}

func (c *Client) Check(ctx context.Context) error {
	if c.folderID != "" {
		_, err := c.srv.Files.Get(c.folderID).Fields("id").SupportsAllDrives(true).Context(ctx).Do()
		return err
	}
	_, err := c.srv.About.Get().Fields("user").Context(ctx).Do()
	return err
}

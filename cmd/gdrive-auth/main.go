// Command gdrive-auth obtains the refresh token used by the gdrive storage
// provider (GDRIVE_REFRESH_TOKEN). It runs the OAuth consent flow against a
// loopback callback and prints the token.
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"animrender/internal/adapters/storage/gdrive"
	"animrender/internal/pkg/errors"
	"animrender/internal/pkg/logger"
)

const authTimeout = 3 * time.Minute

func main() {
	log := logger.New(logger.Config{Level: "info", Format: "text", Output: os.Stderr})

	token, err := run(context.Background(), log)
	if err != nil {
		log.LogFatal("authorization failed", err)
	}
	if strings.TrimSpace(token) == "" {
		// Google only returns a refresh token on first consent.
		log.Warn("no refresh_token returned; revoke the app at https://myaccount.google.com/permissions and retry")
		os.Exit(1)
	}

	fmt.Println(token)
}

func run(ctx context.Context, log *logger.Logger) (string, error) {
	clientID, err := requireEnv("GDRIVE_CLIENT_ID")
	if err != nil {
		return "", err
	}
	clientSecret, err := requireEnv("GDRIVE_CLIENT_SECRET")
	if err != nil {
		return "", err
	}

	// Callback local en un puerto libre
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", errors.Wrap(err, "gdrive-auth.listen", "failed to open callback listener")
	}
	defer ln.Close()

	redirectURL := fmt.Sprintf("http://%s/callback", ln.Addr().String())
	conf := gdrive.OAuthConfig(clientID, clientSecret, redirectURL)
	state := randomState()

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code, err := callbackCode(r, state)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			errCh <- err
			return
		}
		fmt.Fprintln(w, "Authorized. You can close this window and return to the terminal.")
		codeCh <- code
	})

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	// offline + consent => refresh token
	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	log.Info("open this URL in a browser", "url", authURL)
	log.Info("waiting for authorization", "callback", redirectURL, "timeout", authTimeout.String())

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return "", err
	case <-time.After(authTimeout):
		return "", errors.New(errors.CodeTimeout, "timed out waiting for authorization")
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return "", errors.Wrap(err, "gdrive-auth.exchange", "failed to exchange authorization code")
	}
	return tok.RefreshToken, nil
}

func callbackCode(r *http.Request, state string) (string, error) {
	q := r.URL.Query()
	if q.Get("state") != state {
		return "", errors.Validation("invalid state")
	}
	if e := q.Get("error"); e != "" {
		return "", errors.Newf(errors.CodeValidation, "auth error: %s", e)
	}
	code := q.Get("code")
	if code == "" {
		return "", errors.Validation("missing code")
	}
	return code, nil
}

func requireEnv(key string) (string, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return "", errors.ValidationField(key, "missing env: "+key)
	}
	return v, nil
}

func randomState() string {
	b := make([]byte, 18)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

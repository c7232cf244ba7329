package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// NewService builds an authorized Gmail service from an OAuth client file.
// The token is cached at tokenPath; when missing, the interactive consent flow
// runs on stdin/stdout.
func NewService(ctx context.Context, credentialsPath, tokenPath string, logger *zap.Logger) (*gmail.Service, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", credentialsPath, err)
	}

	config, err := google.ConfigFromJSON(b,
		gmail.GmailModifyScope,
		gmail.GmailLabelsScope,
		gmail.GmailSendScope,
	)
	if err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", credentialsPath, err)
	}

	tok, err := tokenFromFile(tokenPath)
	if err != nil {
		logger.Info("token not found, starting OAuth flow", zap.String("path", tokenPath))
		tok, err = getTokenFromWeb(ctx, config)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenPath, tok); err != nil {
			logger.Warn("cannot save token", zap.Error(err))
		} else {
			logger.Info("token saved", zap.String("path", tokenPath))
		}
	}

	srv, err := gmail.NewService(ctx, option.WithTokenSource(config.TokenSource(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("cannot create gmail service: %w", err)
	}

	return srv, nil
}

func getTokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Println("1) Copy this URL and open it in your browser:")
	fmt.Println(authURL)
	fmt.Println("\n2) Sign in and accept the permissions.")
	fmt.Print("3) Paste the authorization code here: ")

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return nil, fmt.Errorf("cannot read auth code: %w", err)
	}

	tok, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("cannot exchange code for token: %w", err)
	}
	return tok, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(tok)
}

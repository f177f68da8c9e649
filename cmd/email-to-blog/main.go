// Command email-to-blog turns the first email in a mailbox into a
// published blog post: it fetches one message over IMAP, extracts the
// text body and image attachments from the MIME tree, writes a
// markdown post with thumbnails under the site's naming conventions,
// and uploads the result to Dropbox.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"

	"github.com/mkw/email-to-blog/internal/blog"
	"github.com/mkw/email-to-blog/internal/config"
	"github.com/mkw/email-to-blog/internal/credential"
	"github.com/mkw/email-to-blog/internal/dropbox"
	"github.com/mkw/email-to-blog/internal/email"
	"github.com/mkw/email-to-blog/internal/imaging"
	"github.com/mkw/email-to-blog/internal/mailbox"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	flags := pflag.NewFlagSet("email-to-blog", pflag.ExitOnError)

	configPath := flags.String("config", config.DefaultConfigPath(), "path to the YAML config file")
	auth := flags.Bool("auth", false, "run the one-time Dropbox authorization flow and exit")

	flags.String("hostname", "imap.gmail.com", "IMAP hostname to connect to")
	flags.Int("port", 993, "IMAP port number")
	flags.String("user", "", "account to check on the IMAP server")
	flags.String("password", "", "password for authentication")
	flags.String("mailbox", "INBOX", "mailbox to read from")
	flags.String("dropbox-app-key", "", "Dropbox app key (client ID)")
	flags.String("dropbox-app-secret", "", "Dropbox app secret")
	flags.String("dropbox-refresh-token", "", "Dropbox refresh token")
	flags.String("dropbox-code", "", "one-time Dropbox authorization code")
	flags.String("output-dir", "", "root of the static site checkout")
	flags.String("media-path", "", "media directory relative to the output dir")
	flags.String("posts-path", "", "posts directory relative to the output dir")
	flags.Uint16("width", 500, "thumbnail width in pixels")
	flags.Bool("expunge", false, "mark the message seen and deleted after processing")
	flags.Bool("show-outline", false, "print the MIME structure before extraction")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		return err
	}

	ctx := context.Background()

	if *auth || cfg.DropboxCode != "" {
		return runAuth(ctx, logger, cfg)
	}

	return runPipeline(ctx, logger, cfg)
}

var consentURLStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

// runAuth performs the one-time authorization flow: show the consent
// URL, exchange the user-supplied code for a refresh token, and store
// the token for later runs.
func runAuth(ctx context.Context, logger *slog.Logger, cfg *config.Settings) error {
	if cfg.DropboxAppKey == "" || cfg.DropboxAppSecret == "" {
		return fmt.Errorf("dropbox app key and secret are required for authorization")
	}

	fmt.Println("Visit this URL, approve access, and copy the code it shows:")
	fmt.Println(consentURLStyle.Render(dropbox.AuthCodeURL(cfg.DropboxAppKey)))

	code := cfg.DropboxCode
	if code == "" {
		input := huh.NewInput().
			Title("Dropbox authorization code").
			Value(&code)
		if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
			return fmt.Errorf("reading authorization code: %w", err)
		}
	}

	client := dropbox.NewClient(cfg.DropboxAppKey, cfg.DropboxAppSecret)
	token, err := client.RefreshToken(ctx, code)
	if err != nil {
		return err
	}

	if err := credential.StoreRefreshToken(token); err != nil {
		// The token is still usable; hand it to the operator instead.
		logger.Warn("could not store token in keyring", "error", err)
		fmt.Printf("Refresh token (configure it manually): %s\n", token)
		return nil
	}

	fmt.Println("Refresh token stored in the system keyring.")
	return nil
}

// runPipeline processes one message end to end and prints the number
// of messages processed (0 or 1) on stdout.
func runPipeline(ctx context.Context, logger *slog.Logger, cfg *config.Settings) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if !imaging.Installed() {
		return fmt.Errorf("convert not found: install ImageMagick before running")
	}

	client := mailbox.New(cfg.Hostname, cfg.Port, cfg.User, cfg.Password, cfg.Mailbox)

	logger.Info("fetching message", "host", cfg.Hostname, "mailbox", cfg.Mailbox)
	raw, err := client.Fetch(ctx, cfg.Expunge)
	if err != nil {
		return err
	}
	if raw == nil {
		logger.Info("no messages to process")
		fmt.Println(0)
		return nil
	}

	var outline io.Writer
	if cfg.ShowOutline {
		outline = os.Stdout
	}

	post, err := email.ExtractMessage(raw, email.Options{
		OutputDir: cfg.OutputDir,
		MediaPath: cfg.MediaPath,
		PostsPath: cfg.PostsPath,
		Width:     cfg.Width,
		Thumbnail: imaging.Thumbnail,
	}, outline)
	if err != nil {
		return err
	}
	logger.Info("extracted post",
		"title", post.Title,
		"slug", post.Slug,
		"attachments", len(post.Attachments),
	)

	if err := blog.Write(post); err != nil {
		return err
	}
	logger.Info("wrote post", "file", post.Filename)

	refreshToken := cfg.DropboxRefreshToken
	if refreshToken == "" {
		if stored, err := credential.RefreshToken(); err == nil {
			refreshToken = stored
		}
	}

	if refreshToken == "" {
		logger.Warn("no Dropbox refresh token configured; skipping upload")
	} else {
		publisher := dropbox.NewClient(cfg.DropboxAppKey, cfg.DropboxAppSecret)
		count, err := publisher.Publish(ctx, refreshToken, post)
		if err != nil {
			return err
		}
		logger.Info("uploaded post", "files", count)
	}

	fmt.Println(1)
	return nil
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	credentialDir  = ".ai-marketing-designer"
	credentialFile = "credentials.gpg"
)

// GPGFile decrypts the key from ~/.ai-marketing-designer/credentials.gpg.
// A missing file is not an error; the source simply has no key.
type GPGFile struct {
	// Path overrides the default credentials location.
	Path string
	// PassphraseFile enables non-interactive decryption. It must be 0600.
	PassphraseFile string
}

func (g GPGFile) Name() string { return "gpg" }

func (g GPGFile) APIKey(ctx context.Context) (string, error) {
	credPath := g.Path
	if credPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		credPath = filepath.Join(home, credentialDir, credentialFile)
	}
	if _, err := os.Stat(credPath); errors.Is(err, os.ErrNotExist) {
		return "", nil
	}

	args := []string{"--decrypt", "--quiet"}
	if g.PassphraseFile != "" {
		if fi, err := os.Stat(g.PassphraseFile); err == nil {
			if mode := fi.Mode().Perm(); mode&0o077 != 0 {
				log.Warn().
					Str("passphrase_file", g.PassphraseFile).
					Str("permissions", fmt.Sprintf("%04o", mode)).
					Msg("Passphrase file has insecure permissions (should be 0600); skipping")
			} else {
				args = append(args, "--pinentry-mode", "loopback", "--passphrase-file", g.PassphraseFile)
			}
		}
	}
	args = append(args, credPath)

	out, err := exec.CommandContext(ctx, "gpg", args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("GPG decryption failed: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("GPG decryption failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

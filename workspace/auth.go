package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gitwsauth "github.com/utilitywarehouse/git-ws/auth"
	"github.com/utilitywarehouse/git-ws/pathurl"
)

const loadCredsScript = `#!/bin/sh

case "$1" in
  Username*) echo "$REPO_USERNAME" ;;
  Password*) echo "$REPO_PASSWORD" ;;
esac
`

var (
	appTokenMu      sync.Mutex
	appTokenCache   = map[string]gitwsauth.GithubAppToken{}
)

// authEnv derives the environment variables the driver must set for a git
// subprocess to authenticate against remoteURL, adapted from the mirrored
// repository's per-clone auth derivation: SSH key env for scp/ssh remotes,
// GIT_ASKPASS username/password (static or GitHub App token) for https
// remotes, nothing for local file:// remotes.
func authEnv(ctx context.Context, dir, remoteURL string, a Auth) ([]string, error) {
	if pathurl.IsSCPURL(remoteURL) || pathurl.IsSSHURL(remoteURL) {
		return []string{gitSSHCommand(a)}, nil
	}

	if !pathurl.IsHTTPSURL(remoteURL) {
		return nil, nil
	}

	var username, password string
	switch {
	case a.Username != "" && a.Password != "":
		username, password = a.Username, a.Password
	case a.Password != "":
		username, password = "-", a.Password
	case a.GithubAppInstallationID != "":
		gURL, err := pathurl.Parse(remoteURL)
		if err != nil {
			return nil, err
		}
		if gURL.Host != "github.com" {
			return nil, nil
		}
		token, err := githubAppToken(ctx, a, strings.TrimSuffix(gURL.Repo, ".git"))
		if err != nil {
			return nil, fmt.Errorf("unable to get github app token: %w", err)
		}
		username, password = "-", token
	default:
		return nil, nil
	}

	scriptPath, err := ensureCredsLoader(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to write creds loader script: %w", err)
	}

	return []string{
		"GIT_ASKPASS=" + scriptPath,
		"REPO_USERNAME=" + username,
		"REPO_PASSWORD=" + password,
	}, nil
}

func ensureCredsLoader(dir string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	script := filepath.Join(dir, ".git-ws-creds-loader.sh")
	if _, err := os.Stat(script); os.IsNotExist(err) {
		if err := os.WriteFile(script, []byte(loadCredsScript), 0o750); err != nil {
			return "", err
		}
	} else if err != nil {
		return "", fmt.Errorf("unable to check creds loader script: %w", err)
	}
	return script, nil
}

func gitSSHCommand(a Auth) string {
	sshKeyPath := a.SSHKeyPath
	if sshKeyPath == "" {
		sshKeyPath = "/dev/null"
	}
	knownHostsOptions := "-o UserKnownHostsFile=/dev/null -o StrictHostKeyChecking=no"
	if a.SSHKeyPath != "" && a.SSHKnownHostsPath != "" {
		knownHostsOptions = "-o UserKnownHostsFile=" + a.SSHKnownHostsPath
	}
	return fmt.Sprintf("GIT_SSH_COMMAND=ssh -q -F none -o IdentitiesOnly=yes -o IdentityFile=%s %s", sshKeyPath, knownHostsOptions)
}

// githubAppToken mints (or reuses, while valid for at least 10 more
// minutes) an installation token scoped to repo.
func githubAppToken(ctx context.Context, a Auth, repo string) (string, error) {
	appTokenMu.Lock()
	defer appTokenMu.Unlock()

	key := a.GithubAppInstallationID + "/" + repo
	if cached, ok := appTokenCache[key]; ok && cached.ExpiresAt.After(time.Now().UTC().Add(10*time.Minute)) {
		return cached.Token, nil
	}

	token, err := gitwsauth.GithubAppInstallationToken(ctx, a.GithubAppID, a.GithubAppInstallationID, a.GithubAppPrivateKeyPath,
		gitwsauth.GithubAppTokenReqPermissions{
			Repositories: []string{repo},
			Permissions:  map[string]string{"contents": "read"},
		})
	if err != nil {
		return "", err
	}

	appTokenCache[key] = *token
	return token.Token, nil
}

package profile

import (
	"os"
	"os/user"
	"strings"
)

// IdentityEnv lists the environment variables consulted first, in order.
var IdentityEnv = []string{"AURASYNC_USER_EMAIL", "AURASYNC_USER", "EMAIL"}

// Fallback is the identity used when nothing else resolves.
const Fallback = "unknown@local"

// Lookup supplies the external sources consulted by ResolveIdentity.
// Nil fields use the process environment, git is skipped and the OS user
// comes from os/user.
type Lookup struct {
	Getenv   func(string) string
	GitEmail func() string
	OSUser   func() string
}

// ResolveIdentity picks the user reported with every heartbeat. Candidates
// in order: the IdentityEnv variables, the configured user, the profile
// email and name, git user.email, then the OS user name with "@local".
// Blank values and "anonymous" are skipped.
func ResolveIdentity(configured string, prof *Profile, l Lookup) string {
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	for _, name := range IdentityEnv {
		if v := sanitize(getenv(name)); v != "" {
			return v
		}
	}
	if v := sanitize(configured); v != "" {
		return v
	}
	if prof != nil {
		if v := sanitize(prof.Email); v != "" {
			return v
		}
		if v := sanitize(prof.Name); v != "" {
			return v
		}
	}
	if l.GitEmail != nil {
		if v := sanitize(l.GitEmail()); v != "" {
			return v
		}
	}
	osUser := l.OSUser
	if osUser == nil {
		osUser = currentUser
	}
	if v := sanitize(osUser()); v != "" {
		return v + "@local"
	}
	return Fallback
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

func sanitize(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "anonymous") {
		return ""
	}
	return v
}

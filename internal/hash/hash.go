// Package hash provides Argon2id password and bearer-token hashing with
// timing-safe verification, used for both User.password_hash and
// McpToken.token_hash.
package hash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Default OWASP-recommended parameters for Argon2id (second recommended
// option: m=19456, t=2, p=1), tuned down slightly for a single-process
// server that also has to hash a candidate against every stored MCP
// token on each Bearer request.
const (
	defaultTime    = 2
	defaultMemory  = 19 * 1024 // KiB
	defaultThreads = 1
	defaultKeyLen  = 32
	saltLen        = 16
)

var ErrMalformedHash = errors.New("hash: malformed encoded hash")
var ErrParamMismatch = errors.New("hash: incompatible argon2 parameters")

// Hash produces a self-describing encoded Argon2id hash of candidate,
// including a freshly generated random salt and the parameters used, so
// stored hashes remain verifiable even if defaults change later.
func Hash(candidate string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("hash: generate salt: %w", err)
	}

	sum := argon2.IDKey([]byte(candidate), salt, defaultTime, defaultMemory, defaultThreads, defaultKeyLen)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		defaultMemory, defaultTime, defaultThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	)
	return encoded, nil
}

// Verify reports whether candidate produces the same Argon2id digest as
// encoded, in constant time with respect to the comparison itself.
func Verify(encoded, candidate string) (bool, error) {
	version, memory, time_, threads, salt, sum, err := decode(encoded)
	if err != nil {
		return false, err
	}
	if version != argon2.Version {
		return false, ErrParamMismatch
	}

	candidateSum := argon2.IDKey([]byte(candidate), salt, time_, memory, threads, uint32(len(sum)))
	return subtle.ConstantTimeCompare(candidateSum, sum) == 1, nil
}

func decode(encoded string) (version int, memory uint32, time_ uint32, threads uint8, salt, sum []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return 0, 0, 0, 0, nil, nil, ErrMalformedHash
	}

	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return 0, 0, 0, 0, nil, nil, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}

	var p uint32
	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time_, &p); err != nil {
		return 0, 0, 0, 0, nil, nil, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	threads = uint8(p)

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return 0, 0, 0, 0, nil, nil, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	if sum, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return 0, 0, 0, 0, nil, nil, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	return version, memory, time_, threads, salt, sum, nil
}

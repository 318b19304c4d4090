// Package security hashes staff passwords with Argon2id and enforces the
// password rules shared by sign-up and password change.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/medok/medok-backend/pkg/config"
)

var ErrInvalidHash = errors.New("invalid argon2id hash")

const hashPrefix = "$argon2id$v=19$"

// argonParams is what a PHC-style hash string records about its own cost.
type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	saltLen uint32
	keyLen  uint32
}

func paramsFor(cfg config.PasswordConfig) argonParams {
	return argonParams{
		memory:  bounded(cfg.ArgonMemoryKB, 8, 512*1024),
		time:    bounded(cfg.ArgonTime, 1, 10),
		threads: uint8(bounded(cfg.ArgonParallelism, 1, 255)),
		saltLen: bounded(cfg.ArgonSaltLen, 8, 64),
		keyLen:  bounded(cfg.ArgonKeyLen, 16, 64),
	}
}

func (p argonParams) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
}

// HashPassword encodes password as
// $argon2id$v=19$m=<kb>,t=<passes>,p=<threads>$<salt>$<key>.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", ErrPasswordRequired
	}
	p := paramsFor(cfg)
	salt := make([]byte, p.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	enc := base64.RawStdEncoding
	return fmt.Sprintf("%sm=%d,t=%d,p=%d$%s$%s",
		hashPrefix, p.memory, p.time, p.threads,
		enc.EncodeToString(salt), enc.EncodeToString(p.derive(password, salt)),
	), nil
}

// VerifyPassword recomputes the key with the parameters stored in encoded.
// A wrong password is (false, nil); only a malformed hash is an error.
func VerifyPassword(password, encoded string) (bool, error) {
	p, salt, key, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(key, p.derive(password, salt)) == 1, nil
}

func parseHash(encoded string) (argonParams, []byte, []byte, error) {
	rest, ok := strings.CutPrefix(encoded, hashPrefix)
	if !ok {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 3 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}

	var p argonParams
	if _, err := fmt.Sscanf(fields[0], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	if p.memory == 0 || p.time == 0 || p.threads == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}

	enc := base64.RawStdEncoding
	salt, err := enc.DecodeString(fields[1])
	if err != nil || len(salt) == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	key, err := enc.DecodeString(fields[2])
	if err != nil || len(key) == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	p.saltLen, p.keyLen = uint32(len(salt)), uint32(len(key))
	return p, salt, key, nil
}

func bounded(v, lo, hi int) uint32 {
	return uint32(min(max(v, lo), hi))
}

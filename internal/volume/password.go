package volume

import (
	"crypto/sha256"
	"fmt"
)

// HashPassword returns the 64-character lowercase hex SHA-256 digest of
// pw, the same digest form stored in Superblock.PasswordHash. Grounded
// on sandstore's sha256-then-hex-encode GenerateFileID pattern.
func HashPassword(pw string) string {
	sum := sha256.Sum256([]byte(pw))
	return fmt.Sprintf("%x", sum)
}

// SetPassword protects an unprotected volume with a new password.
func (v *Volume) SetPassword(prompt PasswordPrompt) error {
	if !v.mounted {
		return ErrNotMounted
	}
	if v.meta.Protected == 1 {
		return v.ChangePassword(prompt)
	}
	pw, err := prompt("Enter new password: ")
	if err != nil {
		return err
	}
	v.meta.Protected = 1
	v.meta.SetPasswordDigest(HashPassword(pw))
	return v.commitSuperblock()
}

// ChangePassword checks the current password before replacing it.
func (v *Volume) ChangePassword(prompt PasswordPrompt) error {
	if !v.mounted {
		return ErrNotMounted
	}
	if v.meta.Protected == 1 {
		pw, err := prompt("Enter current password: ")
		if err != nil {
			return err
		}
		if HashPassword(pw) != v.meta.PasswordDigest() {
			return ErrAuthFailed
		}
	}
	pw, err := prompt("Enter new password: ")
	if err != nil {
		return err
	}
	v.meta.Protected = 1
	v.meta.SetPasswordDigest(HashPassword(pw))
	return v.commitSuperblock()
}

// RemovePassword checks the current password and lifts protection. It
// is a no-op on an already-unprotected volume.
func (v *Volume) RemovePassword(prompt PasswordPrompt) error {
	if !v.mounted {
		return ErrNotMounted
	}
	if v.meta.Protected == 0 {
		return nil
	}
	pw, err := prompt("Enter current password: ")
	if err != nil {
		return err
	}
	if HashPassword(pw) != v.meta.PasswordDigest() {
		return ErrAuthFailed
	}
	v.meta.Protected = 0
	v.meta.PasswordHash = [257]byte{}
	return v.commitSuperblock()
}

// Protected reports whether the volume currently requires a password.
func (v *Volume) Protected() bool { return v.meta.Protected == 1 }

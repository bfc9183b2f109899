// Package fileops holds the filesystem primitives the coordinator builds
// on: ownership capture and reapplication, byte copies, temporary output
// naming, and the stale-temp sweep.
package fileops

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/arthur-debert/morphd/pkg/errors"
)

// Owner is the identity captured from a triggering path at job start.
// Successful jobs reapply it to the final output verbatim.
type Owner struct {
	UID  int
	GID  int
	Mode os.FileMode
}

// CaptureOwner reads ownership and permission bits from path.
func CaptureOwner(path string) (Owner, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return Owner{}, errors.Wrapf(err, errors.ErrFileAccess, "failed to stat %s", path)
	}
	return Owner{
		UID:  int(st.Uid),
		GID:  int(st.Gid),
		Mode: os.FileMode(st.Mode & 0777),
	}, nil
}

// Apply sets ownership and permission bits on path. A failure here is a
// metadata preservation failure: the job must not complete with a
// root-owned file where the source was user-owned.
func (o Owner) Apply(path string) error {
	if err := unix.Chown(path, o.UID, o.GID); err != nil {
		return errors.Wrapf(err, errors.ErrMetadataPreserve,
			"failed to set ownership %d:%d on %s", o.UID, o.GID, path)
	}
	if err := os.Chmod(path, o.Mode); err != nil {
		return errors.Wrapf(err, errors.ErrMetadataPreserve,
			"failed to set mode %o on %s", o.Mode, path)
	}
	return nil
}

// CopyOwner captures ownership from src and applies it to dst.
func CopyOwner(src, dst string) error {
	owner, err := CaptureOwner(src)
	if err != nil {
		return err
	}
	return owner.Apply(dst)
}

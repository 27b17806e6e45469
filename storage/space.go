package storage

import (
	"log"
	"math"

	"golang.org/x/sys/unix"
)

// freeSpace returns the bytes available to unprivileged users on the
// filesystem of dir, or MaxUint64 when that cannot be determined
func freeSpace(dir string) uint64 {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		log.Printf("Cannot read free space of %s: %v", dir, err)
		return math.MaxUint64
	}
	return stat.Bavail * uint64(stat.Bsize)
}

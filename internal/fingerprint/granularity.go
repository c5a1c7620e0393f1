package fingerprint

import (
	"os"

	"golang.org/x/sys/unix"
)

// Granularity reports the filesystem timestamp resolution cook should
// assume when comparing ages, per Design Notes §9 ("filesystem stat
// with nanosecond-or-second mtime granularity, exposed as an integer
// 'granularity' the cookbook may set"). It stats path directly via
// unix.Stat to read the raw nanosecond field of path's mtime, and
// reports seconds == true when that field is zero (taken as a
// second-granularity filesystem), or false (nanosecond) otherwise.
func Granularity(path string) (seconds bool, err error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return false, err
	}
	return st.Mtim.Nsec == 0, nil
}

// ModTimeNanos returns the on-disk modification time as os.Stat
// reports it, split into whole seconds and the nanosecond remainder.
func ModTimeNanos(path string) (sec, nsec int64, err error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		return 0, 0, statErr
	}
	mt := info.ModTime()
	return mt.Unix(), int64(mt.Nanosecond()), nil
}

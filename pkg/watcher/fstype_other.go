//go:build !linux

package watcher

// detectFilesystemType reports FSTypeUnknown off Linux; remote-mount
// detection relies on statfs magic numbers only Linux exposes, and an
// unknown classification keeps fsnotify in play.
func detectFilesystemType(path string) FilesystemType {
	return FSTypeUnknown
}

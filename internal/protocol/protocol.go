package protocol

import "time"

const (
	// DownloadPath is the single route serving the archive.
	DownloadPath = "/"
	// ArchiveName is the filename offered in Content-Disposition.
	ArchiveName = "logs.zip"
	// ServiceType is the mDNS service logzip servers advertise under.
	ServiceType = "_logzip._tcp"
	// ServiceDomain is the mDNS domain.
	ServiceDomain = "local."
)

var (
	ReadTimeout       = 30 * time.Second
	ReadHeaderTimeout = 30 * time.Second
	IdleTimeout       = 60 * time.Second
)

// Package systemd generates the unit file init installs for the watch daemon.
package systemd

// WatchTemplate returns the intentguard-watch.service user unit. The %h
// specifier is resolved by systemd to the user's home directory.
func WatchTemplate() string {
	return `[Unit]
Description=IntentGuard trust report observer
After=network-online.target

[Service]
Type=simple
ExecStart=/usr/local/bin/intentguard watch
Restart=on-failure
RestartSec=2
NoNewPrivileges=true
PrivateTmp=true
ProtectSystem=strict
ReadWritePaths=%h/.intentguard
MemoryMax=128M
TasksMax=16

[Install]
WantedBy=default.target
`
}

package insider

const (
	DefaultTopN     = 20
	DefaultRunLimit = 20
	MaxRunLimit     = 500

	stateVersion = 1

	snapshotOpLoad = "load"
	snapshotOpSave = "save"
)

package shell

// ActivationMarker precedes the PATH line still writes into an rc file.
// Its presence makes setup idempotent.
const ActivationMarker = "# still: put installed tools on PATH"

// BackupSuffix is appended to an rc file's name for its backup copy.
const BackupSuffix = ".still-backup"

package access

type AccessState string

const (
	AccessFull    AccessState = "full"
	AccessPending AccessState = "pending"
	AccessLocked  AccessState = "locked"
)

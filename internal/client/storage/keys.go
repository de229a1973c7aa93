package storage

// Keys under which the client persists its state.
const (
	KeyUsers    = "spa_users"
	KeySession  = "spa_session"
	KeyContacts = "spa_contacts"
)

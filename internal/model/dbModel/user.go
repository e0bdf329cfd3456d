package dbModel

type TokenUser struct {
	TokenID      int64  `db:"token_id"`
	UserID       int64  `db:"user_id"`
	Email        string `db:"email"`
	IsSuperAdmin bool   `db:"is_super_admin"`
}

package models

// All returns every persisted model in migration order.
func All() []any {
	return []any{
		&User{},
		&Profile{},
		&Follow{},
		&Tag{},
		&Blog{},
		&BlogReaction{},
		&Post{},
		&Comment{},
		&Reply{},
		&OTPToken{},
	}
}

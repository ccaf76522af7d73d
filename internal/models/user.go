package models

type UnknownUser struct {
	Login    *string `json:"login"`
	Password *string `json:"password"`
	Name     *string `json:"name,omitempty"`
}

type User struct {
	ID    string
	Login string
	Name  string
	Hash  string
}

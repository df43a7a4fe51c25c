package dto

// AdminLoginPack is the body of POST /private/admin/login.
type AdminLoginPack struct {
	UserID   string `json:"userID"`
	LoginPwd string `json:"loginPwd"`
}

type AdminLoginRequest struct {
	UserLoginPack *AdminLoginPack `json:"UserLoginPack"`
}

// AdminActionPack is the body of POST /private/admin/action.
type AdminActionPack struct {
	Time    int64  `json:"time"`
	Command string `json:"command"`
}

type AdminActionRequest struct {
	UserPostActionPack *AdminActionPack `json:"UserPostActionPack"`
}

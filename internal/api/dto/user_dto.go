package dto

// RegisterPack is the body of POST /user/reg under "regPack".
type RegisterPack struct {
	Time    int64  `json:"time"`
	Name    string `json:"name"`
	Cred    string `json:"cred"`
	CredID  string `json:"credID"`
	Pwd     string `json:"pwd"`
	Email   string `json:"email"`
	Plat    int    `json:"plat"`
	PlatUID string `json:"platUID"`
}

// UserRegisterRequest wraps the registration pack.
type UserRegisterRequest struct {
	RegPack *RegisterPack `json:"regPack"`
}

// LoginPack is the body of POST /user/login under "pack".
type LoginPack struct {
	Time int64  `json:"time"`
	Cred string `json:"cred"`
	Pwd  string `json:"pwd"`
}

// UserLoginRequest wraps the login pack.
type UserLoginRequest struct {
	Pack *LoginPack `json:"pack"`
}

// ActPack is the body of POST /user/act under "pack".
type ActPack struct {
	Time int64 `json:"time"`
	Act  int   `json:"act"`
	Data any   `json:"data"`
}

// UserActRequest wraps the action pack.
type UserActRequest struct {
	Pack *ActPack `json:"pack"`
}

package auth

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// RegisterAuthRoutes mounts the credential lifecycle endpoints on the app.
func RegisterAuthRoutes(app fiber.Router, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Login, controller.Login)
	app.Post(controller.Routes.Refresh, controller.Refresh)
	app.Post(controller.Routes.Register, controller.Register)
	app.Post(controller.Routes.SendOTP, controller.SendOTP)
	app.Post(controller.Routes.VerifyOTP, controller.VerifyOTP)
	app.Post(controller.Routes.ResetPassword, controller.ResetPassword)
	app.Post(controller.Routes.Logout, controller.Logout)

	return controller
}

type AuthControllerRoutes struct {
	Login         string
	Refresh       string
	Register      string
	SendOTP       string
	VerifyOTP     string
	ResetPassword string
	Logout        string
}

type AuthController struct {
	Logger   Logger
	Auther   *Auther
	Recovery *PasswordRecovery
	Repo     RepositoryManager
	Routes   *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Login:         "/login",
			Refresh:       "/refresh",
			Register:      "/register",
			SendOTP:       "/send-otp",
			VerifyOTP:     "/verify-otp",
			ResetPassword: "/reset-password",
			Logout:        "/logout",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Auther in auth controller...")
	}

	if c.Recovery == nil {
		panic("Missing PasswordRecovery in auth controller...")
	}

	return c
}

// WithControllerAuther sets the authenticator used by the controller.
func WithControllerAuther(a *Auther) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = a
		return c
	}
}

// WithControllerRecovery sets the recovery flow used by the controller.
func WithControllerRecovery(r *PasswordRecovery) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Recovery = r
		return c
	}
}

// WithControllerRepo sets the repository manager used for registration.
func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

// WithControllerLogger sets the controller logger.
func WithControllerLogger(l Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `json:"identifier" form:"identifier"`
	Password   string `json:"password" form:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// LoginResponse is the body returned on successful login and refresh.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Role         string `json:"role"`
}

func loginResponse(pair *TokenPair, identity Identity) LoginResponse {
	return LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		UserID:       identity.ID(),
		Username:     identity.Username(),
		Email:        identity.Email(),
		Role:         identity.Role(),
	}
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(c, err)
	}

	pair, identity, err := a.Auther.Login(c.UserContext(), payload.Identifier, payload.Password)
	if err != nil {
		return a.errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(loginResponse(pair, identity))
}

// RefreshRequest payload
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

// Validate will run validation rules
func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

func (a *AuthController) Refresh(c *fiber.Ctx) error {
	payload := new(RefreshRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(c, err)
	}

	pair, identity, err := a.Auther.Refresh(c.UserContext(), payload.RefreshToken)
	if err != nil {
		return a.errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(loginResponse(pair, identity))
}

// RegistrationCreatePayload is the registration payload
type RegistrationCreatePayload struct {
	FirstName       string `json:"first_name" form:"first_name"`
	LastName        string `json:"last_name" form:"last_name"`
	Username        string `json:"username" form:"username"`
	Email           string `json:"email" form:"email"`
	Phone           string `json:"phone_number" form:"phone_number"`
	Department      string `json:"department" form:"department"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) Register(c *fiber.Ctx) error {
	if a.Repo == nil {
		return a.errorResponse(c, goerrors.New("registration is not enabled", goerrors.CategoryOperation))
	}

	payload := new(RegistrationCreatePayload)

	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(c, err)
	}

	req := RegisterUserMessage{
		FirstName:  payload.FirstName,
		LastName:   payload.LastName,
		Username:   payload.Username,
		Email:      payload.Email,
		Phone:      payload.Phone,
		Department: payload.Department,
		Password:   payload.Password,
		UseHashid:  true,
	}

	registerUser := NewRegisterUserHandler(a.Repo)
	if err := registerUser.Execute(c.UserContext(), req); err != nil {
		a.Logger.Error("register user error", "error", err)
		return a.errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "user registered",
	})
}

// SendOTPRequest payload
type SendOTPRequest struct {
	Email string `json:"email" form:"email"`
}

// Validate will run validation rules
func (r SendOTPRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) SendOTP(c *fiber.Ctx) error {
	payload := new(SendOTPRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(c, err)
	}

	if err := a.Recovery.RequestCode(c.UserContext(), payload.Email); err != nil {
		return a.errorResponse(c, sendOTPError(err))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "verification code sent",
	})
}

// sendOTPError flattens recovery lookup failures for the send-otp endpoint,
// which reports both unknown and inactive recipients as a 400.
func sendOTPError(err error) error {
	if goerrors.Is(err, ErrIdentityNotFound) {
		return goerrors.New("email is not registered", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}
	if goerrors.Is(err, ErrInactiveAccount) {
		return goerrors.New("account is not active", goerrors.CategoryBadInput).
			WithTextCode(TextCodeInactiveAccount).
			WithCode(goerrors.CodeBadRequest)
	}
	return err
}

// VerifyOTPRequest payload
type VerifyOTPRequest struct {
	Email string `json:"email" form:"email"`
	Code  string `json:"code" form:"code"`
}

// Validate will run validation rules
func (r VerifyOTPRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required),
	)
}

func (a *AuthController) VerifyOTP(c *fiber.Ctx) error {
	payload := new(VerifyOTPRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(c, err)
	}

	token, err := a.Recovery.ConfirmCode(c.UserContext(), payload.Email, payload.Code)
	if err != nil {
		return a.errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "code verified",
		"data": fiber.Map{
			"reset_token": token,
		},
	})
}

// ResetPasswordRequest payload
type ResetPasswordRequest struct {
	Email           string `json:"email" form:"email"`
	ResetToken      string `json:"reset_token" form:"reset_token"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

// Validate will run validation rules
func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.ResetToken, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(&r.ConfirmPassword, validation.Required),
	)
}

func (a *AuthController) ResetPassword(c *fiber.Ctx) error {
	payload := new(ResetPasswordRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(c, err)
	}

	err := a.Recovery.ResetPassword(
		c.UserContext(),
		payload.Email,
		payload.ResetToken,
		payload.Password,
		payload.ConfirmPassword,
	)
	if err != nil {
		return a.errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "password updated",
	})
}

// LogoutRequest payload. The access token may come in the body or as the
// bearer token.
type LogoutRequest struct {
	AccessToken  string `json:"access_token" form:"access_token"`
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

func (a *AuthController) Logout(c *fiber.Ctx) error {
	payload := new(LogoutRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "failed to parse request body")
	}

	if payload.AccessToken == "" {
		payload.AccessToken = bearerToken(c)
	}

	if payload.AccessToken == "" && payload.RefreshToken == "" {
		return a.badRequest(c, "no tokens provided")
	}

	if err := a.Auther.Logout(c.UserContext(), payload.AccessToken, payload.RefreshToken); err != nil {
		return a.errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "logged out",
	})
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return header[7:]
	}
	return ""
}

func (a *AuthController) badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}

func (a *AuthController) validationError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":  "validation failed",
		"fields": FormatValidationErrorToMap(err),
	})
}

// errorResponse maps domain errors to HTTP statuses. Messages stay generic;
// the precise failure is logged, not returned.
func (a *AuthController) errorResponse(c *fiber.Ctx, err error) error {
	status := statusFromError(err)

	if status >= fiber.StatusInternalServerError {
		a.Logger.Error("auth controller error", "error", err)
	} else {
		a.Logger.Debug("auth controller rejected request", "error", err)
	}

	body := fiber.Map{
		"error": outwardMessage(err, status),
	}
	if code := TextCode(err); code != "" {
		body["code"] = code
	}

	return c.Status(status).JSON(body)
}

func statusFromError(err error) int {
	if goerrors.Is(err, ErrTooManyLoginAttempts) {
		return fiber.StatusTooManyRequests
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		if rich.Code >= fiber.StatusBadRequest {
			return rich.Code
		}
		switch rich.Category {
		case goerrors.CategoryAuth, goerrors.CategoryAuthz:
			return fiber.StatusUnauthorized
		case goerrors.CategoryBadInput, goerrors.CategoryValidation:
			return fiber.StatusBadRequest
		case goerrors.CategoryNotFound:
			return fiber.StatusNotFound
		case goerrors.CategoryConflict:
			return fiber.StatusConflict
		case goerrors.CategoryRateLimit:
			return fiber.StatusTooManyRequests
		}
	}

	return fiber.StatusInternalServerError
}

func outwardMessage(err error, status int) string {
	if status >= fiber.StatusInternalServerError {
		return "internal error"
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Message
	}

	return err.Error()
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return goerrors.New("values must match", goerrors.CategoryValidation)
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a field to
// message map.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verr validation.Errors
	if goerrors.As(err, &verr) {
		for field, ferr := range verr {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["error"] = err.Error()
	return out
}

package service

import (
	"context"
	"errors"
	"fmt"
	"gw-ledger/internal/custom_err"
	"gw-ledger/internal/models"
	"gw-ledger/internal/storage/postgres"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

type Auth interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	ValidateToken(tokenString string) (*models.JWTClaims, error)
}
type AuthService struct {
	accountRepo   postgres.AccountRepository
	txManager     TxManager
	jwtSecret     []byte
	jwtExpiration time.Duration
	log           *slog.Logger
}

func NewAuthService(
	accountRepo postgres.AccountRepository,
	txManager TxManager,
	jwtSecret string,
	jwtExpiration time.Duration,
	log *slog.Logger,
) Auth {
	return &AuthService{
		accountRepo:   accountRepo,
		txManager:     txManager,
		jwtSecret:     []byte(jwtSecret),
		jwtExpiration: jwtExpiration,
		log:           log,
	}
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	const op = "service.Register"

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", custom_err.ErrInvalidInput, err.Error())
	}

	currency := req.Currency
	if currency == "" {
		currency = models.CurrencyUSD
	}
	if !currency.IsValid() {
		return nil, fmt.Errorf("%w: unsupported currency %s", custom_err.ErrInvalidInput, req.Currency)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Error("failed to hash password", slog.String("op", op), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	account := &models.Account{
		ID:                 uuid.New(),
		Username:           req.Username,
		Email:              req.Email,
		PasswordHash:       string(hashedPassword),
		Currency:           string(currency),
		Balance:            0,
		FraudAlerts:        true,
		EmailNotifications: true,
	}

	err = s.txManager.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.accountRepo.CreateTx(ctx, tx, account); err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}

		s.log.Info("account registered successfully",
			slog.String("op", op),
			slog.String("account_id", account.ID.String()),
			slog.String("username", account.Username))

		return nil
	})

	if err != nil {
		s.log.Error("failed to register account", slog.String("op", op), slog.String("error", err.Error()))
		if errors.Is(err, custom_err.ErrUsernameExists) || errors.Is(err, custom_err.ErrEmailExists) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.RegisterResponse{
		Message: "User registered successfully",
	}, nil
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	const op = "service.Login"
	const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

	account, err := s.accountRepo.GetByUsername(ctx, req.Username)

	if err != nil && !errors.Is(err, custom_err.ErrNotFound) {
		s.log.Error("failed to get account", slog.String("op", op), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// неизвестный пользователь сравнивается с фиктивным хэшем, чтобы время
	// ответа не выдавало существование имени
	var hashToCompare string
	if err != nil {
		hashToCompare = dummyHash
	} else {
		hashToCompare = account.PasswordHash
	}

	err = bcrypt.CompareHashAndPassword([]byte(hashToCompare), []byte(req.Password))

	if account == nil || err != nil {
		return nil, custom_err.ErrInvalidCredentials
	}

	token, err := s.generateJWT(account)
	if err != nil {
		s.log.Error("failed to generate JWT", slog.String("op", op), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("user logged in successfully",
		slog.String("op", op),
		slog.String("account_id", account.ID.String()),
		slog.String("username", account.Username))

	return &models.LoginResponse{
		Token: token,
	}, nil
}

func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {

		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, custom_err.ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, custom_err.ErrTokenNotActive
		}

		return nil, custom_err.ErrInvalidToken
	}

	if !token.Valid {
		return nil, custom_err.ErrInvalidToken
	}

	if claims.AccountID == uuid.Nil || claims.Username == "" {
		return nil, custom_err.ErrInvalidToken
	}

	return claims, nil
}

func (s *AuthService) generateJWT(account *models.Account) (string, error) {
	claims := models.JWTClaims{
		AccountID: account.ID,
		Username:  account.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.jwtExpiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

package auth

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hydrafund/hydrafund-node/internal/db"
	"github.com/hydrafund/hydrafund-node/internal/types"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
	"gorm.io/gorm"
)

// Session is the authenticated identity carried by a bearer token.
type Session struct {
	Address    string
	WalletName string
}

// Service implements the challenge-response exchange: a one-time nonce keyed
// by address, an ed25519 signature over it from the wallet, and an HS256
// session token on success.
type Service struct {
	dbm      *db.DatabaseManager
	secret   []byte
	tokenTTL time.Duration
	nonceTTL time.Duration
}

func NewService(dbm *db.DatabaseManager, secret string, tokenTTL, nonceTTL time.Duration) *Service {
	if secret == "" {
		log.Fatal("AUTH_JWT_SECRET is not set")
	}
	return &Service{
		dbm:      dbm,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		nonceTTL: nonceTTL,
	}
}

// IssueNonce stores and returns a fresh single-use challenge for an address.
func (s *Service) IssueNonce(address string) (string, error) {
	if _, err := types.DecodeAddress(address); err != nil {
		return "", fmt.Errorf("invalid address for nonce: %w", err)
	}

	nonce := uuid.New().String()
	record := db.AuthNonce{
		Address:   address,
		Nonce:     nonce,
		Used:      false,
		ExpiresAt: time.Now().Add(s.nonceTTL),
		CreatedAt: time.Now(),
	}
	if err := s.dbm.GetSessionDB().Create(&record).Error; err != nil {
		return "", fmt.Errorf("failed to store nonce: %w", err)
	}
	log.Debugf("Issued auth nonce for address %s", address)
	return nonce, nil
}

// Verify checks the signed challenge and mints a session token. The signing
// key must hash to the payment credential of the claimed address, the nonce
// must be known, fresh and unused, and the signature must cover the exact
// challenge message.
func (s *Service) Verify(address, walletName, message string, publicKey, signature []byte) (string, error) {
	info, err := types.DecodeAddress(address)
	if err != nil {
		return "", fmt.Errorf("invalid address: %w", err)
	}

	var record db.AuthNonce
	err = s.dbm.GetSessionDB().
		Where("address = ? AND nonce = ?", address, message).
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", fmt.Errorf("unknown nonce for address %s", address)
		}
		return "", fmt.Errorf("nonce lookup failed: %w", err)
	}
	if record.Used {
		return "", fmt.Errorf("nonce already used")
	}
	if time.Now().After(record.ExpiresAt) {
		return "", fmt.Errorf("nonce expired")
	}

	if len(publicKey) != ed25519.PublicKeySize {
		return "", fmt.Errorf("public key length %d, want %d", len(publicKey), ed25519.PublicKeySize)
	}
	keyHash := blake2b.Sum256(publicKey)
	credHash, err := blake2b.New(28, nil)
	if err != nil {
		return "", err
	}
	credHash.Write(publicKey)
	if !bytes.Equal(credHash.Sum(nil), info.PaymentKeyHash) {
		return "", fmt.Errorf("public key %x does not own address credential", keyHash[:8])
	}
	if !ed25519.Verify(ed25519.PublicKey(publicKey), []byte(message), signature) {
		return "", fmt.Errorf("signature verification failed")
	}

	record.Used = true
	if err := s.dbm.GetSessionDB().Save(&record).Error; err != nil {
		return "", fmt.Errorf("failed to consume nonce: %w", err)
	}

	token, err := s.mintToken(address, walletName)
	if err != nil {
		return "", err
	}
	log.Infof("Established session for address %s, wallet %s", address, walletName)
	return token, nil
}

func (s *Service) mintToken(address, walletName string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    address,
		"wallet": walletName,
		"jti":    uuid.New().String(),
		"iat":    now.Unix(),
		"exp":    now.Add(s.tokenTTL).Unix(),
	})
	return token.SignedString(s.secret)
}

// ParseToken validates a bearer token and returns the session it carries.
func (s *Service) ParseToken(tokenString string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKey
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid session claims")
	}
	address, _ := claims["sub"].(string)
	walletName, _ := claims["wallet"].(string)
	if address == "" {
		return nil, fmt.Errorf("session token has no subject")
	}
	return &Session{Address: address, WalletName: walletName}, nil
}

package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/models"
	"backend/internal/phone"
	"backend/internal/session"
	"backend/internal/verification"
)

type sendCodeRequest struct {
	Phone string `json:"phone" binding:"required"`
	Name  string `json:"name"`
}

type verifyCodeRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// customerSummary is what the storefront needs to prefill checkout after
// verification.
type customerSummary struct {
	PhoneMasked      string          `json:"phoneMasked"`
	Name             string          `json:"name,omitempty"`
	LastAddress      *models.Address `json:"lastAddress,omitempty"`
	HasOrderedBefore bool            `json:"hasOrderedBefore"`
}

func buildCustomerSummary(customer *models.Customer) customerSummary {
	return customerSummary{
		PhoneMasked:      phone.Mask(customer.Phone),
		Name:             customer.Name,
		LastAddress:      customer.DefaultAddress(),
		HasOrderedBefore: customer.TotalOrders > 0,
	}
}

// SendCode issues a verification code for the submitted phone number.
func SendCode(svc *verification.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout/phone/send-code"
		defer handlePanic(c, route)

		var req sendCodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		expiresIn, err := svc.IssueCode(ctx, req.Phone, req.Name, c.ClientIP())
		if err != nil {
			respondVerificationError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"codeSent":         true,
			"expiresInSeconds": int(expiresIn.Seconds()),
		})
	}
}

// VerifyCode checks the submitted code and, on success, returns a session
// token plus the customer summary.
func VerifyCode(svc *verification.Service, issuer *session.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout/phone/verify-code"
		defer handlePanic(c, route)

		var req verifyCodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		customer, err := svc.VerifyCode(ctx, req.Phone, req.Code)
		if err != nil {
			respondVerificationError(c, route, err)
			return
		}

		token, expiresAt, err := issuer.Issue(customer.ID, customer.Phone)
		if err != nil {
			log.Println("[SESSION] [ERROR] token generation failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "token generation failed")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":     token,
			"expiresAt": expiresAt,
			"customer":  buildCustomerSummary(customer),
		})
	}
}

// Me returns the session customer's summary, letting a returning client
// restore checkout state without re-verifying.
func Me(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /checkout/me"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var customer models.Customer
		if err := db.Collection("customers").FindOne(ctx, bson.M{"_id": customerID}).Decode(&customer); err != nil {
			if err == mongo.ErrNoDocuments {
				respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
				return
			}
			log.Println("[SESSION] [ERROR] customer lookup failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"customer": buildCustomerSummary(&customer)})
	}
}

// respondVerificationError maps the verification error taxonomy onto HTTP.
// Rate-limit denials carry the same wording for every phone; attempt counts
// are surfaced so the UI can show a countdown.
func respondVerificationError(c *gin.Context, route string, err error) {
	var rl *verification.RateLimitedError
	if errors.As(err, &rl) {
		log.Printf("[%s] rate limited", route)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":             "too many requests, please try again later",
			"retryAfterSeconds": int(rl.RetryAfter.Seconds()),
		})
		return
	}

	var mismatch *verification.MismatchError
	if errors.As(err, &mismatch) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":             "incorrect code",
			"attemptsRemaining": mismatch.AttemptsRemaining,
		})
		return
	}

	switch {
	case errors.Is(err, phone.ErrInvalidFormat):
		respondWithError(c, http.StatusBadRequest, route, "invalid phone number")
	case errors.Is(err, verification.ErrDeliveryFailed):
		respondWithError(c, http.StatusBadGateway, route, "sms delivery failed, please retry")
	case errors.Is(err, verification.ErrNoActiveCode):
		respondWithError(c, http.StatusUnauthorized, route, "no active code for this phone")
	case errors.Is(err, verification.ErrCodeExpired):
		respondWithError(c, http.StatusGone, route, "code expired, request a new one")
	case errors.Is(err, verification.ErrTooManyAttempts):
		respondWithError(c, http.StatusLocked, route, "too many attempts, request a new code")
	default:
		log.Printf("[%s] internal error: %v", route, err)
		respondWithError(c, http.StatusInternalServerError, route, "internal server error")
	}
}

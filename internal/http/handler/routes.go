package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/princedesai012/Doc-Flow/internal/model"
	"github.com/princedesai012/Doc-Flow/internal/notify"
	"github.com/princedesai012/Doc-Flow/internal/service"
	"github.com/princedesai012/Doc-Flow/internal/storage"
	"github.com/princedesai012/Doc-Flow/internal/ws"
)

// assetLinkExpiry bounds how long a presigned asset URL stays valid.
const assetLinkExpiry = 15 * time.Minute

// Gateway is the pairing surface of the messaging gateway.
type Gateway interface {
	Pair(ctx context.Context, phoneNumber string) (string, error)
	Status() (notify.GatewayStatus, string)
}

type createRequestBody struct {
	ClientName    string   `json:"clientName"`
	ContactHandle string   `json:"contactHandle"`
	DocTypes      []string `json:"docTypes"`
}

type reviewBody struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type pairBody struct {
	PhoneNumber string `json:"phoneNumber"`
}

// HealthCheck reports readiness by pinging the database.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a plain liveness check with no dependencies.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// CreateRequest lets an operator open a document request; the client is
// messaged the upload link.
func CreateRequest(svc service.RequestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body createRequestBody
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		req, err := svc.Create(c.UserContext(), body.ClientName, body.ContactHandle, body.DocTypes)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(req)
	}
}

// ListRequests returns the operator dashboard snapshot.
func ListRequests(svc service.RequestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.List(c.UserContext())
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}

// ResolveRequest turns an access token into the request it gates.
func ResolveRequest(svc service.RequestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := svc.Resolve(c.UserContext(), c.Params("token"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(req)
	}
}

// UploadDocument accepts one client upload (multipart: accessToken, docType, file).
func UploadDocument(svc service.RequestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.FormValue("accessToken")
		docType := c.FormValue("docType")
		if token == "" || docType == "" {
			return writeError(c, fiber.StatusBadRequest, "MISSING_FIELDS", "accessToken and docType are required")
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		req, err := svc.Ingest(c.UserContext(), token, docType, f, fh.Size, ct)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(req)
	}
}

// ReviewDocument applies an operator decision to one document.
func ReviewDocument(svc service.RequestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Params("requestId")
		docID := c.Params("docId")
		if _, err := uuid.Parse(requestID); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if _, err := uuid.Parse(docID); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		var body reviewBody
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		status := model.DocumentStatus(body.Status)
		if !status.Valid() {
			return writeError(c, fiber.StatusBadRequest, "INVALID_STATUS", "unknown document status")
		}

		req, err := svc.SetDocumentStatus(c.UserContext(), requestID, docID, status, body.Reason)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(req)
	}
}

// DeleteRequest removes a request permanently.
func DeleteRequest(svc service.RequestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// AssetLink redirects the operator to a short-lived presigned URL for an
// uploaded asset.
func AssetLink(svc service.RequestService, store storage.Storage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Params("requestId")
		if _, err := uuid.Parse(requestID); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		req, err := svc.Get(c.UserContext(), requestID)
		if err != nil {
			return serviceError(c, err)
		}
		doc := req.Document(c.Params("docId"))
		if doc == nil || doc.AssetRef == "" {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document asset not found")
		}
		url, err := store.PresignGet(c.UserContext(), doc.AssetRef, assetLinkExpiry)
		if err != nil {
			return writeError(c, fiber.StatusBadGateway, "STORAGE_UNAVAILABLE", "could not produce asset link")
		}
		return c.Redirect(url, fiber.StatusTemporaryRedirect)
	}
}

// PairGateway requests a messaging gateway pairing code. The QR data URL for
// the code reaches observers through the hub and /api/gateway/status.
func PairGateway(gw Gateway) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body pairBody
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if body.PhoneNumber == "" {
			return writeError(c, fiber.StatusBadRequest, "MISSING_FIELDS", "phoneNumber is required")
		}
		code, err := gw.Pair(c.UserContext(), body.PhoneNumber)
		if err != nil {
			return writeError(c, fiber.StatusBadGateway, "GATEWAY_UNAVAILABLE", "messaging gateway did not respond")
		}
		return c.JSON(fiber.Map{"code": code})
	}
}

// GatewayState reports the current gateway status and pairing QR, if any.
func GatewayState(gw Gateway) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status, qr := gw.Status()
		return c.JSON(fiber.Map{"status": status, "qr": qr})
	}
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin: parse, call the service, translate the error.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.RequestService, store storage.Storage, gw Gateway, hub *ws.Hub) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api")
	api.Post("/request", CreateRequest(svc))
	api.Get("/requests", ListRequests(svc))
	api.Get("/request/:token", ResolveRequest(svc))
	api.Post("/upload", UploadDocument(svc))
	api.Put("/request/:requestId/doc/:docId", ReviewDocument(svc))
	api.Delete("/request/:id", DeleteRequest(svc))
	api.Get("/request/:requestId/doc/:docId/asset", AssetLink(svc, store))
	api.Post("/gateway/pair", PairGateway(gw))
	api.Get("/gateway/status", GatewayState(gw))

	// Live updates for dashboard observers.
	api.Use("/ws", ws.Upgrade())
	api.Get("/ws", ws.Handler(hub))
}

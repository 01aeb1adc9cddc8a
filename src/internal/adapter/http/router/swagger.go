package router

import (
	"fmt"
	"net/http"
)

func registerSwaggerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	})

	mux.HandleFunc("/swagger/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, swaggerHTML, "/swagger/openapi.json")
	})

	mux.HandleFunc("/swagger/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(openAPI))
	})
}

const swaggerHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Yosoku Ledger API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = function() {
      window.ui = SwaggerUIBundle({
        url: "%s",
        dom_id: "#swagger-ui"
      });
    };
  </script>
</body>
</html>`

const openAPI = `{
  "openapi": "3.0.3",
  "info": {
    "title": "Yosoku Ledger API",
    "version": "1.0.0",
    "description": "Double-entry token ledger and CPMM market pricing. Amounts and account ids are sent as strings."
  },
  "security": [{"BasicAuth": []}],
  "paths": {
    "/accounts": {
      "post": {
        "summary": "Create account",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["type", "creator"],
                "properties": {
                  "type": {"type": "string", "enum": ["USER", "CONTRACT", "BONUS_SOURCE"]},
                  "creator": {"type": "string", "example": "0"}
                }
              }
            }
          }
        },
        "responses": {
          "201": {"description": "Account created"},
          "400": {"description": "Validation error"},
          "404": {"description": "Creator account not found"}
        }
      },
      "get": {
        "summary": "Get account type",
        "parameters": [
          {"name": "account", "in": "query", "required": true, "schema": {"type": "string"}}
        ],
        "responses": {
          "200": {"description": "Account fetched"},
          "404": {"description": "Account not found"}
        }
      }
    },
    "/transactions": {
      "post": {
        "summary": "Post a balanced transaction",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["createdBy", "postings"],
                "properties": {
                  "createdBy": {"type": "string"},
                  "memo": {"type": "string"},
                  "postings": {
                    "type": "array",
                    "items": {
                      "type": "object",
                      "required": ["account", "amount"],
                      "properties": {
                        "account": {"type": "string"},
                        "token": {"type": "string", "enum": ["SITE_CURRENCY"]},
                        "amount": {"type": "string", "example": "-50"}
                      }
                    }
                  }
                }
              }
            }
          }
        },
        "responses": {
          "201": {"description": "Transaction finalised"},
          "400": {"description": "Validation error"},
          "404": {"description": "Unknown account"},
          "409": {"description": "Balance overflow"},
          "422": {"description": "Postings do not sum to zero"}
        }
      },
      "get": {
        "summary": "List the finalised log",
        "responses": {
          "200": {"description": "Transactions fetched"}
        }
      }
    },
    "/balances": {
      "get": {
        "summary": "Get account balance",
        "parameters": [
          {"name": "account", "in": "query", "required": true, "schema": {"type": "string"}},
          {"name": "token", "in": "query", "required": false, "schema": {"type": "string", "default": "SITE_CURRENCY"}}
        ],
        "responses": {
          "200": {"description": "Balance fetched"},
          "400": {"description": "Validation error"}
        }
      }
    },
    "/markets": {
      "post": {
        "summary": "Create CPMM market",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["creator", "question", "poolYes", "poolNo", "p"],
                "properties": {
                  "creator": {"type": "string"},
                  "question": {"type": "string"},
                  "poolYes": {"type": "string", "example": "100"},
                  "poolNo": {"type": "string", "example": "100"},
                  "p": {"type": "string", "example": "0.5"}
                }
              }
            }
          }
        },
        "responses": {
          "201": {"description": "Market created"},
          "400": {"description": "Validation error"},
          "404": {"description": "Creator account not found"}
        }
      },
      "get": {
        "summary": "Get market",
        "parameters": [
          {"name": "id", "in": "query", "required": true, "schema": {"type": "string"}}
        ],
        "responses": {
          "200": {"description": "Market fetched"},
          "404": {"description": "Market not found"}
        }
      }
    },
    "/markets/quote": {
      "get": {
        "summary": "Quote shares for a bet",
        "parameters": [
          {"name": "marketId", "in": "query", "required": true, "schema": {"type": "string"}},
          {"name": "amount", "in": "query", "required": true, "schema": {"type": "string"}},
          {"name": "direction", "in": "query", "required": true, "schema": {"type": "string", "enum": ["YES", "NO"]}}
        ],
        "responses": {
          "200": {"description": "Bet quoted"},
          "400": {"description": "Validation error or invalid pricing input"},
          "404": {"description": "Market not found"}
        }
      }
    },
    "/markets/bets": {
      "post": {
        "summary": "Place bet",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["marketId", "bettor", "amount", "direction"],
                "properties": {
                  "marketId": {"type": "string"},
                  "bettor": {"type": "string"},
                  "amount": {"type": "string"},
                  "direction": {"type": "string", "enum": ["YES", "NO"]}
                }
              }
            }
          }
        },
        "responses": {
          "201": {"description": "Bet placed"},
          "400": {"description": "Validation error or invalid pricing input"},
          "404": {"description": "Market or bettor not found"},
          "409": {"description": "Pool invariant drift"}
        }
      }
    }
  },
  "components": {
    "securitySchemes": {
      "BasicAuth": {
        "type": "http",
        "scheme": "basic"
      }
    }
  }
}`

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
  <title>Vault Ledger Engine API Docs</title>
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
    "title": "Vault Ledger Engine API",
    "version": "1.0.0"
  },
  "paths": {
    "/vaults": {
      "post": {
        "summary": "Create vault",
        "security": [{"BasicAuth": []}],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["ownerId", "name"],
                "properties": {
                  "ownerId": {"type": "string"},
                  "name": {"type": "string"},
                  "requiresApproval": {"type": "boolean"},
                  "approvalThreshold": {"type": "integer", "minimum": 1},
                  "approvers": {
                    "type": "array",
                    "items": {
                      "type": "object",
                      "required": ["approverId", "pin"],
                      "properties": {
                        "approverId": {"type": "string"},
                        "pin": {"type": "string"}
                      }
                    }
                  }
                }
              }
            }
          }
        },
        "responses": {
          "201": {"description": "Created"},
          "400": {"description": "Validation error"},
          "401": {"description": "Unauthorized"}
        }
      }
    },
    "/vaults/approvers": {
      "post": {
        "summary": "Register vault approver",
        "security": [{"BasicAuth": []}],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["vaultId", "approverId", "pin"],
                "properties": {
                  "vaultId": {"type": "string"},
                  "approverId": {"type": "string"},
                  "pin": {"type": "string"}
                }
              }
            }
          }
        },
        "responses": {
          "201": {"description": "Created"},
          "400": {"description": "Validation error"},
          "404": {"description": "Vault not found"}
        }
      }
    },
    "/vaults/balance-summary": {
      "get": {
        "summary": "Balance summary per currency for an owner",
        "security": [{"BasicAuth": []}],
        "parameters": [
          {"name": "ownerId", "in": "query", "required": true, "schema": {"type": "string"}}
        ],
        "responses": {
          "200": {"description": "OK"},
          "400": {"description": "Validation error"}
        }
      }
    },
    "/accounts": {
      "post": {
        "summary": "Create vault account",
        "security": [{"BasicAuth": []}],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["vaultId", "name", "currency", "accountType"],
                "properties": {
                  "vaultId": {"type": "string"},
                  "name": {"type": "string"},
                  "currency": {"type": "string", "enum": ["USD", "EUR", "GBP", "USDT"]},
                  "accountType": {"type": "string", "enum": ["TRADING", "SETTLEMENT", "CUSTODY"]},
                  "initialBalance": {"type": "string"}
                }
              }
            }
          }
        },
        "responses": {
          "201": {"description": "Created"},
          "400": {"description": "Validation error"},
          "404": {"description": "Vault not found"}
        }
      },
      "get": {
        "summary": "Fetch one account or list a vault's accounts",
        "security": [{"BasicAuth": []}],
        "parameters": [
          {"name": "accountId", "in": "query", "schema": {"type": "string"}},
          {"name": "vaultId", "in": "query", "schema": {"type": "string"}}
        ],
        "responses": {
          "200": {"description": "OK"},
          "404": {"description": "Account not found"}
        }
      }
    },
    "/accounts/status": {
      "post": {
        "summary": "Update account status",
        "security": [{"BasicAuth": []}],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["accountId", "status"],
                "properties": {
                  "accountId": {"type": "string"},
                  "status": {"type": "string", "enum": ["ACTIVE", "FROZEN", "CLOSED"]}
                }
              }
            }
          }
        },
        "responses": {
          "200": {"description": "OK"},
          "400": {"description": "Validation error"},
          "404": {"description": "Account not found"}
        }
      }
    },
    "/transactions": {
      "post": {
        "summary": "Submit transaction",
        "security": [{"BasicAuth": []}],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["type", "amount", "currency", "requestedBy"],
                "properties": {
                  "type": {"type": "string", "enum": ["DEPOSIT", "WITHDRAWAL", "TRANSFER", "FEE", "INTEREST"]},
                  "accountId": {"type": "string"},
                  "amount": {"type": "string"},
                  "currency": {"type": "string", "enum": ["USD", "EUR", "GBP", "USDT"]},
                  "sourceAccountId": {"type": "string"},
                  "destinationAccountId": {"type": "string"},
                  "externalSource": {"type": "string"},
                  "externalDestination": {"type": "string"},
                  "fee": {"type": "string"},
                  "narration": {"type": "string"},
                  "requestedBy": {"type": "string"}
                }
              }
            }
          }
        },
        "responses": {
          "201": {"description": "Created"},
          "400": {"description": "Validation error"},
          "404": {"description": "Account not found"},
          "422": {"description": "Insufficient funds"}
        }
      },
      "get": {
        "summary": "List transactions",
        "security": [{"BasicAuth": []}],
        "parameters": [
          {"name": "accountId", "in": "query", "schema": {"type": "string"}},
          {"name": "type", "in": "query", "schema": {"type": "string"}},
          {"name": "status", "in": "query", "schema": {"type": "string"}},
          {"name": "approvalStatus", "in": "query", "schema": {"type": "string"}},
          {"name": "currency", "in": "query", "schema": {"type": "string"}},
          {"name": "minAmount", "in": "query", "schema": {"type": "string"}},
          {"name": "page", "in": "query", "schema": {"type": "integer"}},
          {"name": "pageSize", "in": "query", "schema": {"type": "integer"}}
        ],
        "responses": {
          "200": {"description": "OK"},
          "400": {"description": "Validation error"}
        }
      }
    },
    "/transactions/cancel": {
      "post": {
        "summary": "Cancel a pending transaction",
        "security": [{"BasicAuth": []}],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["transactionId", "requestedBy"],
                "properties": {
                  "transactionId": {"type": "string"},
                  "requestedBy": {"type": "string"}
                }
              }
            }
          }
        },
        "responses": {
          "200": {"description": "OK"},
          "404": {"description": "Transaction not found"},
          "409": {"description": "Already finalized"}
        }
      }
    },
    "/transactions/expire": {
      "post": {
        "summary": "Expire a pending transaction",
        "security": [{"BasicAuth": []}],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["transactionId"],
                "properties": {
                  "transactionId": {"type": "string"}
                }
              }
            }
          }
        },
        "responses": {
          "200": {"description": "OK"},
          "404": {"description": "Transaction not found"},
          "409": {"description": "Already finalized"}
        }
      }
    },
    "/approvals": {
      "post": {
        "summary": "Approve or reject a gated transaction",
        "security": [{"BasicAuth": []}],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["transactionId", "approverId", "decision", "pin"],
                "properties": {
                  "transactionId": {"type": "string"},
                  "approverId": {"type": "string"},
                  "decision": {"type": "string", "enum": ["APPROVED", "REJECTED"]},
                  "pin": {"type": "string"},
                  "comment": {"type": "string"}
                }
              }
            }
          }
        },
        "responses": {
          "200": {"description": "OK"},
          "400": {"description": "Validation error"},
          "404": {"description": "Transaction not found"},
          "409": {"description": "Approval conflict"}
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

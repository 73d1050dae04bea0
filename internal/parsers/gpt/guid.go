package gpt

import (
	"github.com/google/uuid"

	"github.com/deploymenttheory/go-bootctl/internal/types"
)

// GUIDToUUID converts a GUID stored in GPT mixed-endian form into a uuid.UUID.
func GUIDToUUID(g [types.GptGUIDSize]byte) uuid.UUID {
	return uuid.UUID{
		g[3], g[2], g[1], g[0],
		g[5], g[4],
		g[7], g[6],
		g[8], g[9], g[10], g[11], g[12], g[13], g[14], g[15],
	}
}

// UUIDToGUID converts a uuid.UUID into GPT mixed-endian form.
func UUIDToGUID(u uuid.UUID) [types.GptGUIDSize]byte {
	return [types.GptGUIDSize]byte{
		u[3], u[2], u[1], u[0],
		u[5], u[4],
		u[7], u[6],
		u[8], u[9], u[10], u[11], u[12], u[13], u[14], u[15],
	}
}

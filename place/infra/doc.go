// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - FileCanvas: canvas PNG + diretório de snapshots com nome por timestamp
//   - FileClientStore / RedisClientStore / SQLiteClientStore: registro por cliente
//   - MJPEGRenderer: vídeo still e timelapse (Motion-JPEG em AVI)
//   - LimiterStore: token bucket por cliente usando golang.org/x/time/rate
//   - RequestSlots: semáforo de requisições simultâneas
package infra

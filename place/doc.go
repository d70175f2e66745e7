// Package place expõe o canvas colaborativo via HTTP (net/http + chi).
//
// Visão geral (camadas):
//
//   - domain: parser de instruções, tipos e contratos (sem net/http)
//   - application: Engine (máquina de estados da colocação), Cooldown, Throttle, Slots
//   - infra: canvas em disco, stores de cliente (arquivo/Redis/SQLite), renderer, limiters
//   - place (este pacote): rotas, extração do endereço do cliente, middlewares
//
// Rotas:
//
//	GET /place                -> vídeo still atual, sem mutação
//	GET /place/{instruction}  -> executa "p<índice>" ou "c<rrggbb>" e devolve o still
//
// Rejeições (instrução inválida, cooldown, no-op) devolvem o último artefato
// bom com 200; só falha de persistência vira 500. O header X-Place-Outcome
// informa o que aconteceu.
package place

// Package domain define os tipos e contratos do canvas colaborativo.
//
// Este pacote não depende de net/http, de disco nem de Redis.
// Aqui ficam: o parser de instruções, a cor RGB, o registro do cliente
// (cor escolhida + última colocação) e as interfaces implementadas pela infra
// (CanvasStore, ClientStore, Renderer, StatsStore).
package domain

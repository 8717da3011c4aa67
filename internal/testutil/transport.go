package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/jhoicas/Verifactu-api/internal/infrastructure/aeat"
)

// FakeTransport transporte SOAP en memoria. Devuelve Body (o Err) y guarda cada llamada.
type FakeTransport struct {
	Body []byte
	Err  error

	mu    sync.Mutex
	calls []aeat.Call
}

// NewFakeTransport transporte que responde siempre con body.
func NewFakeTransport(body string) *FakeTransport {
	return &FakeTransport{Body: []byte(body)}
}

// Execute implementa billing.Transport.
func (f *FakeTransport) Execute(ctx context.Context, call aeat.Call) (*aeat.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return &aeat.Response{
		CorrelationID: fmt.Sprintf("fake-%d", f.Len()),
		StatusCode:    http.StatusOK,
		Header:        http.Header{"Content-Type": []string{"text/xml; charset=utf-8"}},
		Body:          append([]byte(nil), f.Body...),
	}, nil
}

// Len número de llamadas recibidas.
func (f *FakeTransport) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// LastCall última llamada recibida.
func (f *FakeTransport) LastCall() (aeat.Call, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return aeat.Call{}, false
	}
	return f.calls[len(f.calls)-1], true
}

// RespuestaRegistro respuesta RegFactuSistemaFacturacion con una línea por serie.
func RespuestaRegistro(estado string, series ...string) string {
	lineas := ""
	for _, s := range series {
		lineas += fmt.Sprintf(`
      <tikR:RespuestaLinea>
        <tikR:IDFactura>
          <tik:IDEmisorFactura>89890001K</tik:IDEmisorFactura>
          <tik:NumSerieFactura>%s</tik:NumSerieFactura>
          <tik:FechaExpedicionFactura>01-09-2024</tik:FechaExpedicionFactura>
        </tikR:IDFactura>
        <tikR:Operacion><tik:TipoOperacion>Alta</tik:TipoOperacion></tikR:Operacion>
        <tikR:EstadoRegistro>%s</tikR:EstadoRegistro>
      </tikR:RespuestaLinea>`, s, estado)
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<env:Envelope xmlns:env="http://schemas.xmlsoap.org/soap/envelope/">
  <env:Body>
    <tikR:RespuestaRegFactuSistemaFacturacion xmlns:tikR="urn:resp" xmlns:tik="urn:info">
      <tikR:CSV>A-TEST000000001</tikR:CSV>
      <tikR:TiempoEsperaEnvio>60</tikR:TiempoEsperaEnvio>
      <tikR:EstadoEnvio>%s</tikR:EstadoEnvio>%s
    </tikR:RespuestaRegFactuSistemaFacturacion>
  </env:Body>
</env:Envelope>`, estado, lineas)
}

// RespuestaConsulta respuesta ConsultaFactuSistemaFacturacion con un registro por huella.
func RespuestaConsulta(paginacion string, huellas ...string) string {
	regs := ""
	for i, h := range huellas {
		regs += fmt.Sprintf(`
      <tikLRRC:RegistroRespuestaConsultaFactuSistemaFacturacion>
        <tikLRRC:IDFactura>
          <tik:IDEmisorFactura>89890001K</tik:IDEmisorFactura>
          <tik:NumSerieFactura>F2024-%03d</tik:NumSerieFactura>
          <tik:FechaExpedicionFactura>01-09-2024</tik:FechaExpedicionFactura>
        </tikLRRC:IDFactura>
        <tikLRRC:DatosRegistroFacturacion>
          <tik:TipoFactura>F1</tik:TipoFactura>
          <tik:Huella>%s</tik:Huella>
        </tikLRRC:DatosRegistroFacturacion>
        <tikLRRC:EstadoRegistro><tik:EstadoRegistro>Correcta</tik:EstadoRegistro></tikLRRC:EstadoRegistro>
      </tikLRRC:RegistroRespuestaConsultaFactuSistemaFacturacion>`, i+1, h)
	}
	resultado := "ConDatos"
	if len(huellas) == 0 {
		resultado = "SinDatos"
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<env:Envelope xmlns:env="http://schemas.xmlsoap.org/soap/envelope/">
  <env:Body>
    <tikLRRC:RespuestaConsultaFactuSistemaFacturacion xmlns:tikLRRC="urn:cons" xmlns:tik="urn:info">
      <tikLRRC:ResultadoConsulta>%s</tikLRRC:ResultadoConsulta>%s
      <tikLRRC:IndicadorPaginacion>%s</tikLRRC:IndicadorPaginacion>
    </tikLRRC:RespuestaConsultaFactuSistemaFacturacion>
  </env:Body>
</env:Envelope>`, resultado, regs, paginacion)
}

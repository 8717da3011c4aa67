package billing

import (
	"strings"

	"github.com/jhoicas/Verifactu-api/internal/application/dto"
	"github.com/jhoicas/Verifactu-api/internal/domain/verifactu"
	"github.com/jhoicas/Verifactu-api/internal/infrastructure/qr"
	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

// InvoiceFromRequest construye el alta a partir del body HTTP. Los errores de validación se
// acumulan en el documento y aparecen al enviarlo.
func (m *Manager) InvoiceFromRequest(in dto.InvoiceRequest) *verifactu.Invoice {
	inv := m.NewInvoice(in.NumSerie, in.Fecha)
	if in.Tipo != "" {
		inv.SetType(pkgvf.TipoFactura(strings.ToUpper(in.Tipo)))
	}
	if in.TipoRectificativa != "" {
		inv.SetRectificationType(pkgvf.TipoRectificativa(strings.ToUpper(in.TipoRectificativa)))
	}
	inv.SetDescription(in.Descripcion)
	if in.RefExterna != "" {
		inv.SetExternalReference(in.RefExterna)
	}
	if in.FechaOperacion != "" {
		inv.SetOperationDate(in.FechaOperacion)
	}
	if in.Subsanacion || in.RechazoPrevio {
		inv.SetSubsanacion(in.RechazoPrevio)
	}
	inv.SetIncidence(in.Incidencia)

	for _, d := range in.Destinatarios {
		if d.NIF != "" {
			inv.AddRecipient(d.NIF, d.Nombre)
			continue
		}
		inv.AddForeignRecipient(d.Nombre, d.CodigoPais, d.IDType, d.ID)
	}
	if in.Tercero != nil {
		inv.SetThirdParty(in.Tercero.NIF, in.Tercero.Nombre)
	}
	for _, d := range in.Desglose {
		inv.AddDesglose(desgloseLine(d))
	}
	for _, f := range in.FacturasRectificadas {
		inv.AddRectifiedInvoice(f.NIF, f.NumSerie, f.Fecha)
	}
	for _, f := range in.FacturasSustituidas {
		inv.AddSubstitutedInvoice(f.NIF, f.NumSerie, f.Fecha)
	}
	if r := in.ImporteRectificacion; r != nil {
		inv.SetRectificationAmounts(r.Base, r.Cuota, r.Recargo)
	}

	switch {
	case in.Encadenamiento.PrimerRegistro:
		inv.SetAsFirstInChain()
	case in.Encadenamiento.Anterior != nil:
		inv.SetChainLink(chainLink(*in.Encadenamiento.Anterior))
	}
	return inv
}

// CancellationFromRequest construye la anulación a partir del body HTTP.
func (m *Manager) CancellationFromRequest(in dto.CancellationRequest) *verifactu.Cancellation {
	c := m.NewCancellation(in.NumSerie, in.Fecha)
	if in.RechazoPrevio {
		c.SetAsPreviousRejection(true)
	}
	if in.SinRegistroPrevio {
		c.SetWithoutPreviousRecord(true)
	}
	if in.Subsanacion {
		c.SetCorrection(true)
	}
	if in.RefExterna != "" {
		c.SetExternalReference(in.RefExterna)
	}
	c.SetIncidence(in.Incidencia)
	if in.GeneradoPor != "" {
		var nif, name string
		if in.Generador != nil {
			nif, name = in.Generador.NIF, in.Generador.Nombre
		}
		c.SetGenerator(strings.ToUpper(in.GeneradoPor), nif, name)
	}

	switch {
	case in.Encadenamiento.PrimerRegistro:
		c.SetAsFirstInChain()
	case in.Encadenamiento.Anterior != nil:
		c.SetChainLink(chainLink(*in.Encadenamiento.Anterior))
	}
	return c
}

// QueryFromRequest construye la consulta a partir del body HTTP.
func (m *Manager) QueryFromRequest(in dto.QueryRequest) *verifactu.Query {
	q := m.NewQuery()
	if in.Ejercicio != 0 || in.Periodo != 0 {
		q.SetPeriod(in.Ejercicio, in.Periodo)
	}
	if in.NumSerie != "" || in.Fecha != "" {
		q.SetInvoice(in.NumSerie, in.Fecha)
	}
	if in.Contraparte != nil {
		q.SetCounterparty(in.Contraparte.NIF, in.Contraparte.Nombre)
	}
	if in.Desde != "" || in.Hasta != "" {
		q.SetDateRange(in.Desde, in.Hasta)
	}
	if in.RefExterna != "" {
		q.SetExternalReference(in.RefExterna)
	}
	if in.Huella != "" {
		q.SetFingerprint(in.Huella)
	}
	if k := in.ClavePaginacion; k != nil {
		q.SetPaginationKey(verifactu.ClavePaginacion{
			IDEmisorFactura:        pkgvf.NormalizeTaxID(k.NIF),
			NumSerieFactura:        k.NumSerie,
			FechaExpedicionFactura: k.Fecha,
		})
	}
	return q.ShowIssuerName(in.MostrarNombre).ShowSystemInfo(in.MostrarSistema)
}

// RegistrationDTO respuesta HTTP de un alta o anulación. qrURL puede ir vacío.
func RegistrationDTO(r *Receipt, qrURL string) dto.RegistrationResponse {
	out := dto.RegistrationResponse{
		CorrelationID:            r.CorrelationID,
		Huella:                   r.Huella,
		FechaHoraHusoGenRegistro: r.FechaHoraHusoGenRegistro,
		Lineas:                   []dto.LineaDTO{},
		Siguiente: dto.ChainLinkDTO{
			NIF:      r.NextLink.IDEmisorFactura,
			NumSerie: r.NextLink.NumSerieFactura,
			Fecha:    r.NextLink.FechaExpedicionFactura,
			Huella:   r.NextLink.Huella,
		},
		QRURL: qrURL,
	}
	if r.Response == nil {
		return out
	}
	out.CSV = r.Response.CSV
	out.EstadoEnvio = r.Response.EstadoEnvio
	out.TiempoEsperaEnvio = r.Response.TiempoEsperaEnvio
	for _, l := range r.Response.Lineas {
		out.Lineas = append(out.Lineas, dto.LineaDTO{
			NumSerie:         l.IDFactura.NumSerieFactura,
			Fecha:            l.IDFactura.FechaExpedicionFactura,
			TipoOperacion:    l.TipoOperacion,
			EstadoRegistro:   l.EstadoRegistro,
			CodigoError:      l.CodigoErrorRegistro,
			DescripcionError: l.DescripcionErrorRegistro,
		})
	}
	return out
}

// QueryDTO respuesta HTTP de una consulta.
func QueryDTO(r *verifactu.QueryResponse) dto.QueryResponse {
	out := dto.QueryResponse{
		Resultado: r.ResultadoConsulta,
		HayMas:    r.HasMore(),
		Registros: make([]dto.RegistroDTO, 0, len(r.Registros)),
	}
	for _, reg := range r.Registros {
		out.Registros = append(out.Registros, dto.RegistroDTO{
			NumSerie:       reg.IDFactura.NumSerieFactura,
			Fecha:          reg.IDFactura.FechaExpedicionFactura,
			TipoFactura:    reg.TipoFactura,
			CuotaTotal:     reg.CuotaTotal,
			ImporteTotal:   reg.ImporteTotal,
			Huella:         reg.Huella,
			FechaHora:      reg.FechaHoraHusoGenRegistro,
			EstadoRegistro: reg.EstadoRegistro,
		})
	}
	if k, ok := r.NextPageKey(); ok {
		out.ClaveSiguiente = &dto.IDFacturaDTO{
			NIF:      k.IDEmisorFactura,
			NumSerie: k.NumSerieFactura,
			Fecha:    k.FechaExpedicionFactura,
		}
	}
	return out
}

// InvoiceQRURL URL de cotejo VERI*FACTU del alta, en el entorno del Manager.
func (m *Manager) InvoiceQRURL(inv *verifactu.Invoice) (string, error) {
	id := inv.ID()
	_, importe := inv.Totals()
	d := qr.Data{NIF: id.IDEmisorFactura, NumSerie: id.NumSerieFactura, Fecha: id.FechaExpedicionFactura, Importe: importe}
	return d.URL(true, m.cfg.IsTest())
}

func desgloseLine(d dto.DesgloseDTO) verifactu.DesgloseLine {
	return verifactu.DesgloseLine{
		Impuesto:        pkgvf.Impuesto(d.Impuesto),
		ClaveRegimen:    pkgvf.ClaveRegimen(d.ClaveRegimen),
		Calificacion:    pkgvf.Calificacion(strings.ToUpper(d.Calificacion)),
		OperacionExenta: pkgvf.CausaExencion(strings.ToUpper(d.OperacionExenta)),
		Base:            d.Base,
		TipoImpositivo:  d.Tipo,
		Cuota:           d.Cuota,
		BaseACoste:      d.BaseACoste,
		TipoRecargo:     d.TipoRecargo,
		CuotaRecargo:    d.CuotaRecargo,
	}
}

func chainLink(l dto.ChainLinkDTO) verifactu.ChainLink {
	return verifactu.ChainLink{
		IDEmisorFactura:        pkgvf.NormalizeTaxID(l.NIF),
		NumSerieFactura:        strings.TrimSpace(l.NumSerie),
		FechaExpedicionFactura: strings.TrimSpace(l.Fecha),
		Huella:                 strings.ToUpper(strings.TrimSpace(l.Huella)),
	}
}

package graphwriter

import "github.com/shugein/ceg/internal/models"

// UpsertEventQuery creates or touches an Event node. Events are immutable
// after creation (spec.md §4.B invariant), so ON MATCH only refreshes the
// anchor flag, which can flip after extraction when the anchor set is
// reloaded.
func UpsertEventQuery(ev models.Event) Query {
	return Query{
		Query: `
			MERGE (e:Event {id: $id})
			ON CREATE SET
				e.record_key = $record_key,
				e.source_code = $source_code,
				e.type = $type,
				e.title = $title,
				e.timestamp = $timestamp,
				e.is_anchor = $is_anchor,
				e.extraction_confidence = $extraction_confidence,
				e.sectors = $sectors,
				e.tickers = $tickers,
				e.companies = $companies
			ON MATCH SET
				e.is_anchor = $is_anchor
		`,
		Parameters: map[string]interface{}{
			"id":                    ev.ID,
			"record_key":            ev.RecordKey,
			"source_code":           ev.SourceCode,
			"type":                  string(ev.Type),
			"title":                 ev.Title,
			"timestamp":             ev.Timestamp.UnixNano(),
			"is_anchor":             ev.IsAnchor,
			"extraction_confidence": ev.ExtractionConfidence,
			"sectors":               ev.Attrs.Sectors,
			"tickers":               ev.Attrs.Tickers,
			"companies":             ev.Attrs.Companies,
		},
	}
}

// UpsertInstrumentQuery creates or refreshes an Instrument node, keyed by
// its stable exchange:symbol id.
func UpsertInstrumentQuery(in models.Instrument) Query {
	return Query{
		Query: `
			MERGE (i:Instrument {id: $id})
			ON CREATE SET
				i.exchange = $exchange,
				i.symbol = $symbol,
				i.isin = $isin,
				i.security_type = $security_type,
				i.short_name = $short_name,
				i.sector = $sector,
				i.traded = $traded
			ON MATCH SET
				i.traded = $traded,
				i.sector = CASE WHEN $sector <> '' THEN $sector ELSE i.sector END
		`,
		Parameters: map[string]interface{}{
			"id":            in.ID(),
			"exchange":      in.Exchange,
			"symbol":        in.Symbol,
			"isin":          in.ISIN,
			"security_type": string(in.SecurityType),
			"short_name":    in.ShortName,
			"sector":        in.Sector,
			"traded":        in.Traded,
		},
	}
}

// UpsertCompanyQuery creates or refreshes a Company node.
func UpsertCompanyQuery(co models.Company) Query {
	return Query{
		Query: `
			MERGE (c:Company {id: $id})
			ON CREATE SET
				c.name = $name,
				c.primary_instrument = $primary_instrument,
				c.sector = $sector
			ON MATCH SET
				c.primary_instrument = CASE WHEN $primary_instrument <> '' THEN $primary_instrument ELSE c.primary_instrument END
		`,
		Parameters: map[string]interface{}{
			"id":                 co.ID,
			"name":               co.Name,
			"primary_instrument": co.PrimaryInstrument,
			"sector":             co.Sector,
		},
	}
}

// UpsertImportanceQuery stamps the latest importance total onto an Event
// node. Importance scores are recomputed and overwritten in place; only
// the most recent score is kept on the node, per spec.md §4.F (historical
// scores are not required to coexist in the graph read path).
func UpsertImportanceQuery(score models.ImportanceScore) Query {
	return Query{
		Query: `
			MATCH (e:Event {id: $event_id})
			SET e.importance_total = $total, e.importance_computed_at = $computed_at
		`,
		Parameters: map[string]interface{}{
			"event_id":     score.EventID,
			"total":        score.Total,
			"computed_at":  score.ComputedAt.UnixNano(),
		},
	}
}

// UpsertCausalLinkQuery creates or refreshes the CAUSES edge for one
// cause->effect pair. The CMNLN Engine decides whether a new score
// replaces an existing one (cmnln.ShouldReplace); this query
// always writes the caller's values, so the decision to call it at all is
// the caller's responsibility.
func UpsertCausalLinkQuery(link models.CausalLink) Query {
	return Query{
		Query: `
			MATCH (cause:Event {id: $cause_event_id})
			MATCH (effect:Event {id: $effect_event_id})
			MERGE (cause)-[r:CAUSES]->(effect)
			ON CREATE SET
				r.kind = $kind, r.sign = $sign, r.lag_class = $lag_class,
				r.conf_prior = $conf_prior, r.conf_text = $conf_text,
				r.conf_market = $conf_market, r.conf_total = $conf_total,
				r.weights_version = $weights_version, r.state = $state,
				r.evidence = $evidence
			ON MATCH SET
				r.kind = $kind, r.sign = $sign, r.lag_class = $lag_class,
				r.conf_prior = $conf_prior, r.conf_text = $conf_text,
				r.conf_market = $conf_market, r.conf_total = $conf_total,
				r.weights_version = $weights_version, r.state = $state,
				r.evidence = $evidence
		`,
		Parameters: map[string]interface{}{
			"cause_event_id":  link.CauseEventID,
			"effect_event_id": link.EffectEventID,
			"kind":            string(link.Kind),
			"sign":            string(link.Sign),
			"lag_class":       string(link.LagClass),
			"conf_prior":      link.ConfPrior,
			"conf_text":       link.ConfText,
			"conf_market":     link.ConfMarket,
			"conf_total":      link.ConfTotal,
			"weights_version": link.WeightsVersion,
			"state":           string(link.State),
			"evidence":        link.Evidence,
		},
	}
}

// UpsertImpactEdgeQuery creates the IMPACTS edge from an Event to the
// Instrument the market study found a significant move in.
func UpsertImpactEdgeQuery(edge models.ImpactEdge) Query {
	return Query{
		Query: `
			MATCH (e:Event {id: $event_id})
			MATCH (i:Instrument {id: $instrument_id})
			MERGE (e)-[r:IMPACTS]->(i)
			ON CREATE SET
				r.price_impact = $price_impact,
				r.volume_impact = $volume_impact,
				r.sentiment_sign = $sentiment_sign,
				r.window = $window
			ON MATCH SET
				r.price_impact = $price_impact,
				r.volume_impact = $volume_impact,
				r.sentiment_sign = $sentiment_sign
		`,
		Parameters: map[string]interface{}{
			"event_id":       edge.EventID,
			"instrument_id":  edge.InstrumentID,
			"price_impact":   edge.PriceImpact,
			"volume_impact":  edge.VolumeImpact,
			"sentiment_sign": string(edge.SentimentSign),
			"window":         edge.Window,
		},
	}
}

// UpsertTriggeredWatchQuery creates a TriggeredWatch node and its TRIGGERED
// edge from the Event that fired it.
func UpsertTriggeredWatchQuery(tw models.TriggeredWatch) Query {
	return Query{
		Query: `
			MATCH (e:Event {id: $trigger_event_id})
			MERGE (w:TriggeredWatch {id: $id})
			ON CREATE SET
				w.rule_id = $rule_id, w.level = $level,
				w.trigger_time = $trigger_time, w.auto_expire_at = $auto_expire_at,
				w.notifications_sent = $notifications_sent, w.expired = $expired
			MERGE (e)-[:TRIGGERED]->(w)
		`,
		Parameters: map[string]interface{}{
			"id":                  tw.ID,
			"rule_id":             tw.RuleID,
			"level":               string(tw.Level),
			"trigger_event_id":    tw.TriggerEventID,
			"trigger_time":        tw.TriggerTime.UnixNano(),
			"auto_expire_at":      tw.AutoExpireAt.UnixNano(),
			"notifications_sent":  tw.NotificationsSent,
			"expired":             tw.Expired,
		},
	}
}

// MarkWatchExpiredQuery flips a TriggeredWatch's expired flag.
func MarkWatchExpiredQuery(watchID string) Query {
	return Query{
		Query:      `MATCH (w:TriggeredWatch {id: $id}) SET w.expired = true`,
		Parameters: map[string]interface{}{"id": watchID},
	}
}

// UpsertEventPredictionQuery creates an EventPrediction node and its
// PREDICTS edge from the base Event.
func UpsertEventPredictionQuery(p models.EventPrediction) Query {
	return Query{
		Query: `
			MATCH (e:Event {id: $base_event_id})
			MERGE (p:EventPrediction {id: $id})
			ON CREATE SET
				p.rule_id = $rule_id, p.predicted_type = $predicted_type,
				p.probability = $probability, p.window_start = $window_start,
				p.window_end = $window_end, p.generated_at = $generated_at,
				p.status = $status
			MERGE (e)-[:PREDICTS]->(p)
		`,
		Parameters: map[string]interface{}{
			"id":             p.ID,
			"rule_id":        p.RuleID,
			"base_event_id":  p.BaseEventID,
			"predicted_type": string(p.PredictedType),
			"probability":    p.Probability,
			"window_start":   p.WindowStart.UnixNano(),
			"window_end":     p.WindowEnd.UnixNano(),
			"generated_at":   p.GeneratedAt.UnixNano(),
			"status":         string(p.Status),
		},
	}
}

// FulfilPredictionQuery flips an EventPrediction to FULFILLED and records
// the event that fulfilled it.
func FulfilPredictionQuery(predictionID, fulfilledByEventID string) Query {
	return Query{
		Query: `
			MATCH (p:EventPrediction {id: $id})
			SET p.status = 'FULFILLED', p.fulfilled_by_event = $fulfilled_by_event
		`,
		Parameters: map[string]interface{}{"id": predictionID, "fulfilled_by_event": fulfilledByEventID},
	}
}

// OpenPredictionsByTypeQuery finds PENDING predictions for predictedType
// whose window contains t, the query internal/reconciler uses to check
// fulfilment on every new Event.
func OpenPredictionsByTypeQuery(predictedType, tNanos interface{}) Query {
	return Query{
		Query: `
			MATCH (p:EventPrediction {status: 'PENDING', predicted_type: $predicted_type})
			WHERE p.window_start <= $t AND p.window_end >= $t
			RETURN p.id, p.rule_id, p.base_event_id, p.predicted_type, p.probability, p.window_start, p.window_end, p.generated_at, p.status
		`,
		Parameters: map[string]interface{}{"predicted_type": predictedType, "t": tNanos},
	}
}

// LinkEventToInstrumentQuery creates a LINKS edge from an Event to an
// Instrument the Linker resolved a mention to.
func LinkEventToInstrumentQuery(eventID, instrumentID string) Query {
	return Query{
		Query: `
			MATCH (e:Event {id: $event_id})
			MATCH (i:Instrument {id: $instrument_id})
			MERGE (e)-[:LINKS]->(i)
		`,
		Parameters: map[string]interface{}{"event_id": eventID, "instrument_id": instrumentID},
	}
}

// LinkCompanyIssuesInstrumentQuery creates the ISSUES edge from a Company
// to the Instrument it is the issuer of.
func LinkCompanyIssuesInstrumentQuery(companyID, instrumentID string) Query {
	return Query{
		Query: `
			MATCH (c:Company {id: $company_id})
			MATCH (i:Instrument {id: $instrument_id})
			MERGE (c)-[:ISSUES]->(i)
		`,
		Parameters: map[string]interface{}{"company_id": companyID, "instrument_id": instrumentID},
	}
}

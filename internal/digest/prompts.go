package digest

import "encoding/json"

// researchPrompt is the fixed-date deep-research prompt for one ticker.
const researchPrompt = `Do a comprehensive stock analysis for %s as of %s:
- Current stock price and recent price performance
- Market capitalization and key financial metrics
- Latest earnings results and guidance
- Recent news and developments
- Analyst ratings, upgrades/downgrades, and price targets
- Key risks and opportunities
- Investment recommendation with reasoning
Focus on all the recent updates about the company.`

// reportSchema describes the StockReport shape requested from the research
// provider. Ticker, sources, and metrics are attached locally, never asked for.
var reportSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "company_name": {"type": "string", "description": "Company name"},
    "summary": {"type": "string", "description": "Summary of the stock analysis"},
    "current_performance": {"type": "string", "description": "Current performance analysis"},
    "key_insights": {"type": "array", "items": {"type": "string"}, "description": "Key insights from analysis"},
    "recommendation": {"type": "string", "description": "Investment recommendation"},
    "risk_assessment": {"type": "string", "description": "Risk assessment"},
    "price_outlook": {"type": "string", "description": "Price outlook"}
  },
  "required": ["company_name", "summary", "current_performance", "recommendation", "risk_assessment", "price_outlook"]
}`)

// metricsSchema describes the MetricsBlock shape for structured extraction.
// Every field is nullable: absence means unavailable.
var metricsSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "current_price": {"type": ["number", "null"], "description": "Current/latest stock price"},
    "latest_open_price": {"type": ["number", "null"], "description": "Latest open price"},
    "latest_close_price": {"type": ["number", "null"], "description": "Latest close price"},
    "two_year_price_high": {"type": ["number", "null"], "description": "2-year price high in dollars"},
    "two_year_price_low": {"type": ["number", "null"], "description": "2-year price low in dollars"},
    "trading_volume": {"type": ["number", "null"], "description": "Trading volume"},
    "sharpe_ratio": {"type": ["number", "null"], "description": "Sharpe ratio"},
    "annualized_cagr": {"type": ["number", "null"], "description": "Annualized CAGR percentage"},
    "max_drawdown": {"type": ["number", "null"], "description": "Maximum drawdown percentage"},
    "market_cap": {"type": ["number", "null"], "description": "Market capitalization in dollars"}
  }
}`)

// metricsInstructions is the extraction instruction block for one ticker.
const metricsInstructions = `Extract financial metrics for %s from the search snippets below.
Extract these metrics if available (use null if unavailable):
- Sharpe ratio, annualized CAGR, max drawdown
- Latest open/close prices, current price, trading volume
- 2-year price high and low, market capitalization`

// overviewPrompt condenses per-ticker briefings into one market overview.
const overviewPrompt = `You are a financial analyst. Write a concise market overview (3-5 paragraphs)
synthesizing the stock reports below. Cover common themes, notable divergences,
and the overall risk picture. Do not repeat every number; highlight what matters.

%s`

// suggestionsQuery searches for new picks, excluding the requested tickers.
const suggestionsQuery = `top stock picks analyst buy recommendations emerging growth stocks undervalued opportunities NOT %s`

// suggestionsInstructions asks for a flat ticker-to-reason object.
const suggestionsInstructions = `From the market commentary below, identify up to 5 stock tickers currently
recommended by analysts. Exclude these tickers: %s.
Return a JSON object mapping each ticker symbol to a one-sentence reason.`

// suggestionsSchema is a free-form string map; keys are gated afterwards.
var suggestionsSchema = json.RawMessage(`{
  "type": "object",
  "additionalProperties": {"type": "string", "description": "One-sentence reason this ticker is recommended"}
}`)

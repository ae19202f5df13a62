package viz

import (
	"fmt"
	"html/template"
	"math"
	"os"
	"strings"
	"time"
)

// Report is the data behind a training report page. Steps, Losses and
// LearningRates are per optimization step; TrainAcc and ValAcc are per
// epoch. LearningRates and the accuracy series may be empty, in which
// case their charts are omitted.
type Report struct {
	Title         string
	RunID         string
	Steps         []int64
	Losses        []float64
	LearningRates []float64
	TrainAcc      []float64
	ValAcc        []float64
}

// WriteReport writes a self-contained HTML page with the loss curve,
// accuracy and learning-rate charts. The page needs no server and no
// external assets; open it in any browser.
func WriteReport(path string, r Report) error {
	if len(r.Steps) == 0 {
		return fmt.Errorf("no metrics to write")
	}
	if len(r.Losses) != len(r.Steps) {
		return fmt.Errorf("got %d losses for %d steps", len(r.Losses), len(r.Steps))
	}
	if len(r.LearningRates) != 0 && len(r.LearningRates) != len(r.Steps) {
		return fmt.Errorf("got %d learning rates for %d steps", len(r.LearningRates), len(r.Steps))
	}
	if len(r.TrainAcc) != len(r.ValAcc) {
		return fmt.Errorf("got %d train accuracies for %d validation accuracies", len(r.TrainAcc), len(r.ValAcc))
	}

	title := r.Title
	if title == "" {
		title = "Training Report"
	}

	minLoss, avgLoss := r.Losses[0], 0.0
	for _, loss := range r.Losses {
		if loss < minLoss {
			minLoss = loss
		}
		avgLoss += loss
	}
	avgLoss /= float64(len(r.Losses))

	epochs := make([]int64, len(r.TrainAcc))
	for i := range epochs {
		epochs[i] = int64(i + 1)
	}

	page := reportPage{
		Title:       title,
		RunID:       r.RunID,
		GeneratedAt: time.Now().Format(time.RFC1123),
		TotalSteps:  len(r.Steps),
		FinalLoss:   fmt.Sprintf("%.4f", r.Losses[len(r.Losses)-1]),
		MinLoss:     fmt.Sprintf("%.4f", minLoss),
		AvgLoss:     fmt.Sprintf("%.4f", avgLoss),
		HasAccuracy: len(r.ValAcc) > 0,
		HasLR:       len(r.LearningRates) > 0,
		Steps:       template.JS(jsInts(r.Steps)),
		Losses:      template.JS(jsFloats(r.Losses)),
		Rates:       template.JS(jsFloats(r.LearningRates)),
		Epochs:      template.JS(jsInts(epochs)),
		TrainAcc:    template.JS(jsFloats(r.TrainAcc)),
		ValAcc:      template.JS(jsFloats(r.ValAcc)),
	}
	if page.HasAccuracy {
		page.FinalValAcc = fmt.Sprintf("%.1f%%", r.ValAcc[len(r.ValAcc)-1]*100)
	}

	var sb strings.Builder
	if err := reportTemplate.Execute(&sb, page); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

type reportPage struct {
	Title       string
	RunID       string
	GeneratedAt string
	TotalSteps  int
	FinalLoss   string
	MinLoss     string
	AvgLoss     string
	FinalValAcc string
	HasAccuracy bool
	HasLR       bool
	Steps       template.JS
	Losses      template.JS
	Rates       template.JS
	Epochs      template.JS
	TrainAcc    template.JS
	ValAcc      template.JS
}

// jsInts formats an int slice as a JavaScript array literal.
func jsInts(arr []int64) string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, v := range arr {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, "%d", v)
	}
	sb.WriteString("]")
	return sb.String()
}

// jsFloats formats a float slice as a JavaScript array literal. NaN
// becomes null so a broken step shows as a gap instead of breaking the
// whole chart; infinities clamp to the float64 edge.
func jsFloats(arr []float64) string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, v := range arr {
		if i > 0 {
			sb.WriteString(",")
		}
		switch {
		case math.IsNaN(v):
			sb.WriteString("null")
		case math.IsInf(v, 1):
			sb.WriteString("1e308")
		case math.IsInf(v, -1):
			sb.WriteString("-1e308")
		default:
			fmt.Fprintf(&sb, "%.6f", v)
		}
	}
	sb.WriteString("]")
	return sb.String()
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
    background: #0d1117; color: #c9d1d9; padding: 20px; line-height: 1.6;
}
.container { max-width: 1100px; margin: 0 auto; }
h1 { font-size: 28px; margin-bottom: 10px; color: #58a6ff; }
.subtitle { color: #8b949e; margin-bottom: 30px; font-size: 14px; }
.stats {
    display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr));
    gap: 15px; margin-bottom: 30px;
}
.stat-card {
    background: #161b22; border: 1px solid #30363d; border-radius: 6px; padding: 15px;
}
.stat-label {
    font-size: 12px; color: #8b949e; text-transform: uppercase;
    letter-spacing: 0.5px; margin-bottom: 5px;
}
.stat-value { font-size: 24px; font-weight: 600; color: #58a6ff; }
.chart-container {
    background: #161b22; border: 1px solid #30363d; border-radius: 6px;
    padding: 20px; margin-bottom: 20px;
}
.chart-title { font-size: 18px; font-weight: 600; margin-bottom: 15px; }
canvas { width: 100% !important; height: 300px !important; }
.footer {
    text-align: center; color: #8b949e; font-size: 12px; margin-top: 40px;
    padding-top: 20px; border-top: 1px solid #30363d;
}
</style>
</head>
<body>
<div class="container">
    <h1>{{.Title}}</h1>
    <div class="subtitle">Run {{.RunID}} | {{.GeneratedAt}}</div>

    <div class="stats">
        <div class="stat-card">
            <div class="stat-label">Total Steps</div>
            <div class="stat-value">{{.TotalSteps}}</div>
        </div>
        <div class="stat-card">
            <div class="stat-label">Final Loss</div>
            <div class="stat-value">{{.FinalLoss}}</div>
        </div>
        <div class="stat-card">
            <div class="stat-label">Min Loss</div>
            <div class="stat-value">{{.MinLoss}}</div>
        </div>
        <div class="stat-card">
            <div class="stat-label">Average Loss</div>
            <div class="stat-value">{{.AvgLoss}}</div>
        </div>
{{if .HasAccuracy}}        <div class="stat-card">
            <div class="stat-label">Final Val Accuracy</div>
            <div class="stat-value">{{.FinalValAcc}}</div>
        </div>
{{end}}    </div>

    <div class="chart-container">
        <div class="chart-title">Loss Curve</div>
        <canvas id="lossChart"></canvas>
    </div>
{{if .HasAccuracy}}
    <div class="chart-container">
        <div class="chart-title">Accuracy</div>
        <canvas id="accChart"></canvas>
    </div>
{{end}}{{if .HasLR}}
    <div class="chart-container">
        <div class="chart-title">Learning Rate</div>
        <canvas id="lrChart"></canvas>
    </div>
{{end}}
    <div class="footer">Generated by the Loom ML Framework</div>
</div>

<script>
const steps = {{.Steps}};
const losses = {{.Losses}};
const rates = {{.Rates}};
const epochs = {{.Epochs}};
const trainAcc = {{.TrainAcc}};
const valAcc = {{.ValAcc}};

function drawChart(canvasId, xs, series, yLabel) {
    const canvas = document.getElementById(canvasId);
    if (!canvas || xs.length === 0) return;
    const ctx = canvas.getContext('2d');
    const dpr = window.devicePixelRatio || 1;
    const rect = canvas.getBoundingClientRect();
    canvas.width = rect.width * dpr;
    canvas.height = rect.height * dpr;
    ctx.scale(dpr, dpr);

    const width = rect.width, height = rect.height, padding = 50;
    const chartWidth = width - 2 * padding;
    const chartHeight = height - 2 * padding;

    let minVal = Infinity, maxVal = -Infinity;
    for (const s of series) {
        for (const v of s.data) {
            if (v === null) continue;
            if (v < minVal) minVal = v;
            if (v > maxVal) maxVal = v;
        }
    }
    if (!isFinite(minVal)) return;
    const range = (maxVal - minVal) || 1;
    const minX = xs[0], maxX = xs[xs.length - 1];
    const xRange = (maxX - minX) || 1;

    ctx.strokeStyle = '#30363d';
    ctx.lineWidth = 1;
    ctx.beginPath();
    ctx.moveTo(padding, padding);
    ctx.lineTo(padding, height - padding);
    ctx.lineTo(width - padding, height - padding);
    ctx.stroke();

    ctx.strokeStyle = '#21262d';
    for (let i = 1; i < 5; i++) {
        const y = padding + chartHeight * i / 5;
        ctx.beginPath();
        ctx.moveTo(padding, y);
        ctx.lineTo(width - padding, y);
        ctx.stroke();

        const val = maxVal - range * i / 5;
        ctx.fillStyle = '#8b949e';
        ctx.font = '11px monospace';
        ctx.textAlign = 'right';
        ctx.fillText(val.toFixed(4), padding - 10, y + 4);
    }

    for (const s of series) {
        ctx.strokeStyle = s.color;
        ctx.lineWidth = 2;
        ctx.beginPath();
        let started = false;
        for (let i = 0; i < s.data.length; i++) {
            if (s.data[i] === null) continue;
            const x = padding + chartWidth * (xs[i] - minX) / xRange;
            const y = height - padding - chartHeight * (s.data[i] - minVal) / range;
            if (!started) { ctx.moveTo(x, y); started = true; } else { ctx.lineTo(x, y); }
        }
        ctx.stroke();
    }

    ctx.fillStyle = '#8b949e';
    ctx.font = '11px monospace';
    ctx.textAlign = 'center';
    for (let i = 0; i <= 4; i++) {
        const xVal = minX + xRange * i / 4;
        const x = padding + chartWidth * i / 4;
        ctx.fillText(Math.round(xVal).toString(), x, height - padding + 20);
    }

    if (series.length > 1) {
        let lx = padding + 10;
        for (const s of series) {
            ctx.fillStyle = s.color;
            ctx.fillRect(lx, padding - 24, 10, 10);
            ctx.fillStyle = '#c9d1d9';
            ctx.font = '12px sans-serif';
            ctx.textAlign = 'left';
            ctx.fillText(s.label, lx + 14, padding - 15);
            lx += 14 + ctx.measureText(s.label).width + 20;
        }
    }

    ctx.fillStyle = '#c9d1d9';
    ctx.font = '12px sans-serif';
    ctx.textAlign = 'center';
    ctx.save();
    ctx.translate(15, height / 2);
    ctx.rotate(-Math.PI / 2);
    ctx.fillText(yLabel, 0, 0);
    ctx.restore();
}

function drawAll() {
    drawChart('lossChart', steps, [{data: losses, color: '#58a6ff', label: 'loss'}], 'Loss');
    drawChart('accChart', epochs, [
        {data: trainAcc, color: '#d29922', label: 'train'},
        {data: valAcc, color: '#56d364', label: 'validation'}
    ], 'Accuracy');
    drawChart('lrChart', steps, [{data: rates, color: '#56d364', label: 'lr'}], 'Learning Rate');
}

window.onload = drawAll;
window.onresize = drawAll;
</script>
</body>
</html>
`))

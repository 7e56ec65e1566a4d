package handlers

import (
	"encoding/json"
	"html/template"
	"net/http"
	"os"
	"strings"

	"trial-viewer/database"

	"github.com/google/uuid"
)

type ShareHandler struct {
	baseURL string
}

func NewShareHandler() *ShareHandler {
	base := os.Getenv("API_BASE")
	if base == "" {
		base = "http://localhost:8080"
	}
	return &ShareHandler{baseURL: base}
}

func newShareID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Create — POST /api/share → {"id":"…","url":"…"}
// Тело — финальный ViewModel завершённого дела (как вернул /api/trial/view).
func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	allowCORS(w, "POST")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if database.DB == nil {
		http.Error(w, `{"error":"db unavailable"}`, http.StatusServiceUnavailable)
		return
	}

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	id := newShareID()
	_, err := database.DB.Exec(
		`INSERT INTO shared_results (id, result) VALUES ($1, $2)`,
		id, []byte(raw),
	)
	if err != nil {
		http.Error(w, `{"error":"db error"}`, http.StatusInternalServerError)
		return
	}

	shareURL := h.baseURL + "/s/" + id
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"id": id, "url": shareURL})
}

// GetResult — GET /api/share/:id → raw JSON result
func (h *ShareHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	id := strings.TrimPrefix(r.URL.Path, "/api/share/")
	if id == "" || database.DB == nil {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	var raw []byte
	err := database.DB.QueryRow(
		`SELECT result FROM shared_results WHERE id = $1 AND expires_at > NOW()`,
		id,
	).Scan(&raw)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "не найдено или истёк срок"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}

var shareTmpl = template.Must(template.New("share").Parse(`<!DOCTYPE html>
<html lang="ru">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>Вердикт суда</title>
<style>
*{box-sizing:border-box;margin:0;padding:0}
body{background:#0a0e1a;color:#e2e8f0;font-family:'Segoe UI',system-ui,sans-serif;min-height:100vh;display:flex;align-items:center;justify-content:center;padding:20px}
.card{background:#111827;border:1px solid #1f2937;border-radius:16px;max-width:680px;width:100%;padding:32px;box-shadow:0 25px 50px rgba(0,0,0,.5)}
.score{font-size:64px;font-weight:800;line-height:1}
.score.green{color:#22c55e}.score.yellow{color:#d4af37}.score.red{color:#ef4444}
.verdict{font-size:20px;font-weight:600;margin:8px 0 24px;color:#94a3b8}
.claim{color:#cbd5e1;line-height:1.6;margin-bottom:24px;font-style:italic}
.summary{color:#cbd5e1;line-height:1.6;margin-bottom:24px}
.section{margin-bottom:20px}
.section h3{font-size:13px;text-transform:uppercase;letter-spacing:.1em;color:#64748b;margin-bottom:10px}
.tag{display:inline-block;background:#1e293b;border:1px solid #334155;border-radius:6px;padding:4px 10px;font-size:13px;margin:3px;color:#94a3b8}
.footer{margin-top:28px;padding-top:20px;border-top:1px solid #1f2937;display:flex;align-items:center;justify-content:space-between;flex-wrap:wrap;gap:8px}
.footer a{color:#3b82f6;text-decoration:none;font-size:14px}
.footer a:hover{text-decoration:underline}
.badge{font-size:12px;color:#475569}
</style>
</head>
<body>
<div class="card">
  <div class="badge">⚖ Суд над дезинформацией</div>
  <div id="content" style="margin-top:16px;color:#475569">Загрузка...</div>
</div>
<script>
const id=location.pathname.split('/').pop();
fetch('/api/share/'+id)
  .then(r=>r.json())
  .then(d=>{
    const v=d.verdict||{};
    const fast=v.mode==='fasttrack';
    const score=fast?(v.confidence||0):(v.score||0);
    const cls=fast
      ?(v.final_verdict==='VERIFIED'?'green':v.final_verdict==='FAKE'?'red':'yellow')
      :(score>=60?'green':score<=40?'red':'yellow');
    const label=fast?(v.final_verdict||'UNCERTAIN'):(v.category||'Вердикт жюри');
    const text=fast?(v.reasoning||''):(v.summary||'');
    const findings=(fast?(v.key_findings||[]):[]).map(f=>'<span class="tag">'+f+'</span>').join('');
    const jurors=(v.individual_verdicts||[]).map(j=>'<span class="tag">Присяжный '+j.juror_id+' · '+j.confidence_score+'</span>').join('');
    const aware=d.awareness_score?('<div class="section"><h3>Внимательность зрителя</h3><span class="tag">'+d.awareness_score.score+'/10</span></div>'):'';
    document.getElementById('content').innerHTML=
      '<div class="score '+cls+'">'+score+(fast?'%':'/100')+'</div>'+
      '<div class="verdict">'+label+'</div>'+
      (d.claim?'<div class="claim">«'+d.claim+'»</div>':'')+
      '<div class="summary">'+text+'</div>'+
      (findings?'<div class="section"><h3>Ключевые находки</h3>'+findings+'</div>':'')+
      (jurors?'<div class="section"><h3>Жюри</h3>'+jurors+'</div>':'')+
      aware+
      '<div class="footer"><a href="/">Запустить свой процесс →</a><span class="badge">Поделились вердиктом</span></div>';
  })
  .catch(()=>{document.getElementById('content').innerHTML='<div style="color:#ef4444">Ссылка устарела или не существует</div>';});
</script>
</body>
</html>`))

// ShowPage — GET /s/:id → HTML страница вердикта
func (h *ShareHandler) ShowPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	shareTmpl.Execute(w, nil)
}

package pagescan

// collectScript returns every visible element that owns a non-blank text
// node, with its computed color and the first opaque ancestor background.
// Translucent backgrounds are skipped rather than composited; the document
// falls back to white.
const collectScript = `(max) => {
  const transparent = (c) => !c || c === 'transparent' || /^rgba\([^)]*,\s*0\)$/.test(c);

  const backgroundOf = (el) => {
    for (let n = el; n && n.nodeType === 1; n = n.parentElement) {
      const bg = getComputedStyle(n).backgroundColor;
      if (!transparent(bg)) return bg;
    }
    return 'rgb(255, 255, 255)';
  };

  const selectorOf = (el) => {
    let s = el.tagName.toLowerCase();
    if (el.id) return s + '#' + el.id;
    const classes = Array.from(el.classList).slice(0, 2);
    if (classes.length) s += '.' + classes.join('.');
    return s;
  };

  const ownText = (el) => Array.from(el.childNodes)
    .filter((n) => n.nodeType === 3)
    .map((n) => n.textContent)
    .join(' ')
    .replace(/\s+/g, ' ')
    .trim();

  const out = [];
  for (const el of document.body ? document.body.querySelectorAll('*') : []) {
    if (out.length >= max) break;
    if (['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE'].includes(el.tagName)) continue;

    const text = ownText(el);
    if (!text) continue;

    const style = getComputedStyle(el);
    if (style.display === 'none' || style.visibility === 'hidden' || el.getClientRects().length === 0) continue;

    out.push({
      selector: selectorOf(el),
      text: text,
      color: style.color,
      background_color: backgroundOf(el),
      font_size: parseFloat(style.fontSize) || 0,
      font_weight: String(style.fontWeight),
    });
  }
  return out;
}`
